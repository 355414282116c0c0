// Package shard provides shard key generation for distributed DynamoDB tables.
package shard

import (
	"fmt"
	"hash/fnv"
)

// OwnerRef builds the canonical reference for an owning record.
func OwnerRef(bucket, key string) string {
	return fmt.Sprintf("%s#%s", bucket, key)
}

// LinkPK computes the sharded partition key for a link record.
// With numShards=1, all of an owner's links go to shard "00".
// With numShards>1, links are distributed across shards based on target hash.
func LinkPK(ownerRef, target string, numShards int) string {
	if numShards <= 1 {
		return fmt.Sprintf("%s#00", ownerRef)
	}
	h := fnv.New32a()
	h.Write([]byte(target))
	shard := h.Sum32() % uint32(numShards)
	return fmt.Sprintf("%s#%02x", ownerRef, shard)
}

// ShardPK returns the partition key for a specific shard number, used when
// fanning a query out across every shard of an owner.
func ShardPK(ownerRef string, shardNum int) string {
	return fmt.Sprintf("%s#%02x", ownerRef, shardNum)
}
