/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package submission

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stprnvsh/sumo-k8/pkg/stringutil"
)

// ShardThreshold is the largest base64 payload carried by a single
// config blob. The orchestrator caps blobs at ~1 MiB; the margin leaves
// room for metadata.
const ShardThreshold = 900000

const (
	// singleBlobKey holds the whole encoded payload when it fits in
	// one blob.
	singleBlobKey = "sumo_files.zip.b64"
	// chunkKey holds one shard of a split payload.
	chunkKey = "chunk"
)

// BlobName returns the job's primary config blob name.
func BlobName(jobId string) string {
	return "sumo-" + stringutil.ShortId(jobId)
}

// ChunkBlobName returns the name of shard i. The index is decimal, and
// reassembly must follow the numeric order, not the lexicographic one.
func ChunkBlobName(jobId string, i int) string {
	return fmt.Sprintf("%s-chunk%d", BlobName(jobId), i)
}

// ChunkIndex parses the shard index back out of a blob name. It returns
// -1 for names that are not shards.
func ChunkIndex(name string) int {
	pos := strings.LastIndex(name, "-chunk")
	if pos < 0 {
		return -1
	}
	index, err := strconv.Atoi(name[pos+len("-chunk"):])
	if err != nil {
		return -1
	}
	return index
}

// splitShards cuts the encoded payload into ShardThreshold-sized pieces.
func splitShards(encoded string) []string {
	var shards []string
	for len(encoded) > ShardThreshold {
		shards = append(shards, encoded[:ShardThreshold])
		encoded = encoded[ShardThreshold:]
	}
	return append(shards, encoded)
}

// JoinShards reassembles the encoded payload in numeric shard order.
func JoinShards(shards []string) string {
	return strings.Join(shards, "")
}
