/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stringutil

import (
	"strings"
	"testing"

	"gotest.tools/assert"
)

func TestNormalizeNamespace(t *testing.T) {
	assert.Equal(t, NormalizeNamespace("Acme_Corp"), "acme-corp")
	assert.Equal(t, NormalizeNamespace("  tenant one "), "tenant-one")
	assert.Equal(t, NormalizeNamespace("acme"), "acme")
	assert.Equal(t, NormalizeNamespace(""), "")
}

func TestApiKey(t *testing.T) {
	key := ApiKey("sk-", 32)
	assert.Equal(t, len(key), 35)
	assert.Equal(t, strings.HasPrefix(key, "sk-"), true)
	for _, ch := range key[3:] {
		assert.Equal(t, strings.ContainsRune(apiKeyLetters, ch), true)
	}
	// two keys must differ
	assert.Equal(t, key == ApiKey("sk-", 32), false)
}

func TestShortId(t *testing.T) {
	assert.Equal(t, ShortId("0d9c2ba5-9f6b-4a68-bb59-2a8f9d3a1c11"), "0d9c2ba5")
	assert.Equal(t, ShortId("abc"), "abc")
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte("sumo config payload")
	assert.DeepEqual(t, Base64Decode(Base64Encode(data)), data)
	assert.Equal(t, Base64Encode(nil), "")
	var nilBytes []byte
	assert.DeepEqual(t, Base64Decode("!!!"), nilBytes)
}
