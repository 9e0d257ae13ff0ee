package redisindex

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/kailas-cloud/blendex/internal/db"
	"github.com/kailas-cloud/blendex/internal/domain/record"
)

// buildHashFields flattens a record into hash fields for HSET.
// Multi-valued fields are joined with db.FacetSeparator.
func buildHashFields(rec record.Record, vector []float32) map[string]string {
	m := make(map[string]string, 2+len(rec.Fields()))
	for k, vs := range rec.Fields() {
		if k == db.TitleField || k == db.VectorField || len(vs) == 0 {
			continue
		}
		m[k] = strings.Join(vs, db.FacetSeparator)
	}
	m[db.TitleField] = rec.Title()
	if len(vector) > 0 {
		m[db.VectorField] = vectorToBytes(vector)
	}
	return m
}

// parseHashFields restores a record from hash fields. The vector is dropped.
func parseHashFields(id string, score float64, m map[string]string) record.Record {
	fields := make(map[string][]string, len(m))
	for k, v := range m {
		switch k {
		case db.TitleField, db.VectorField:
			continue
		}
		if v == "" {
			continue
		}
		fields[k] = strings.Split(v, db.FacetSeparator)
	}
	return record.Reconstruct(id, m[db.TitleField], score, fields, record.SourceNone)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
