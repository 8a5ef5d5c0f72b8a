package kv_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/graphkv/pkg/kv"
)

func TestTimestampFilterInclusiveBounds(t *testing.T) {
	f := kv.NewTimestampFilter(10, true, 20, true)
	assert.True(t, f.Match(nil, nil, nil, nil, 10))
	assert.True(t, f.Match(nil, nil, nil, nil, 15))
	assert.True(t, f.Match(nil, nil, nil, nil, 20))
	assert.False(t, f.Match(nil, nil, nil, nil, 9))
	assert.False(t, f.Match(nil, nil, nil, nil, 21))
}

func TestTimestampFilterUnboundedSide(t *testing.T) {
	startOnly := kv.NewTimestampFilter(10, true, 0, false)
	assert.False(t, startOnly.Match(nil, nil, nil, nil, 5))
	assert.True(t, startOnly.Match(nil, nil, nil, nil, 10_000_000))

	endOnly := kv.NewTimestampFilter(0, false, 20, true)
	assert.True(t, endOnly.Match(nil, nil, nil, nil, 0))
	assert.False(t, endOnly.Match(nil, nil, nil, nil, 21))
}

func TestRowRegexFilter(t *testing.T) {
	f := &kv.RowRegexFilter{Pattern: regexp.MustCompile(`^v\d+$`)}
	assert.True(t, f.Match([]byte("v1"), nil, nil, nil, 0))
	assert.False(t, f.Match([]byte("vertex1"), nil, nil, nil, 0))
}

func TestValueRegexFilter(t *testing.T) {
	f := &kv.ValueRegexFilter{Pattern: regexp.MustCompile("^alice")}
	assert.True(t, f.Match(nil, nil, nil, []byte("alice123"), 0))
	assert.False(t, f.Match(nil, nil, nil, []byte("bob"), 0))
}

func TestQualifierRegexFilter(t *testing.T) {
	f := &kv.QualifierRegexFilter{Pattern: regexp.MustCompile("^element-a$")}
	assert.True(t, f.Match(nil, nil, []byte("element-a"), nil, 0))
	assert.False(t, f.Match(nil, nil, []byte("element-b"), nil, 0))
}
