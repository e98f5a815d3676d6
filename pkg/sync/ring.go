package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over the partition indexes [0, partitions).
type ring struct {
	hashRing *treemap.Map

	// Cached since treemap.Map.Min() is O(log n).
	minPartition int
}

// newRing returns a hash ring where each partition owns replicationFactor
// points.
func newRing(name string, partitions, replicationFactor uint) *ring {
	hashRing := treemap.NewWith(utils.Int64Comparator)

	for p := uint(0); p < partitions; p++ {
		var seed [12]byte
		copy(seed[:4], name)
		binary.LittleEndian.PutUint64(seed[4:], uint64(p))
		base, _ := murmur3.Sum128(seed[:])

		var point [12]byte
		binary.LittleEndian.PutUint64(point[:8], base)
		for i := uint(0); i < replicationFactor; i++ {
			binary.LittleEndian.PutUint32(point[8:], uint32(i))
			hash, _ := murmur3.Sum128(point[:])
			hashRing.Put(int64(hash), int(p))
		}
	}

	r := &ring{hashRing: hashRing}
	if _, first := hashRing.Min(); first != nil {
		r.minPartition = first.(int)
	}
	return r
}

// shard consistently hashes the key to a partition index.
func (r *ring) shard(key []byte) int {
	raw, _ := murmur3.Sum128(key)
	_, partition := r.hashRing.Ceiling(int64(raw))
	if partition != nil {
		return partition.(int)
	}
	return r.minPartition
}
