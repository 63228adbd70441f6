/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package stringutil

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"strings"
)

const apiKeyLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Base64Encode encodes raw bytes to standard base64.
func Base64Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode decodes a base64 encoded string, returns nil if decode fails.
func Base64Decode(inputString string) []byte {
	if inputString == "" {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(inputString)
	if err != nil {
		return nil
	}
	return decoded
}

// NormalizeNamespace derives a namespace name from a tenant id: lowercase,
// trimmed, underscores and spaces replaced with hyphens.
func NormalizeNamespace(str string) string {
	if str == "" {
		return ""
	}
	str = strings.ToLower(str)
	str = strings.TrimSpace(str)
	str = strings.ReplaceAll(str, "_", "-")
	str = strings.ReplaceAll(str, " ", "-")
	return str
}

// ApiKey generates an API token of the form <prefix><length random chars>,
// random part drawn from [A-Za-z0-9].
func ApiKey(prefix string, length int) string {
	key := strings.Builder{}
	key.WriteString(prefix)
	for i := 0; i < length; i++ {
		key.WriteByte(apiKeyLetters[randUint32()%uint32(len(apiKeyLetters))])
	}
	return key.String()
}

// ShortId returns the first 8 characters of an id, used in orchestrator
// object names (sim-<shortId>, upload-<shortId>, ...).
func ShortId(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func randUint32() uint32 {
	var k uint32
	if err := binary.Read(rand.Reader, binary.LittleEndian, &k); err != nil {
		return 0
	}
	return k
}
