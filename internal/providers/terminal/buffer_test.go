package terminal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferAppendAndSnapshot(t *testing.T) {
	buf := NewBuffer(1024)

	buf.Append([]byte("hello "))
	buf.Append([]byte("world"))

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, uint64(0), snapshot[0].Seq)
	assert.Equal(t, uint64(1), snapshot[1].Seq)
	assert.Equal(t, "hello world", string(buf.Bytes()))
	assert.Equal(t, 11, buf.Len())
}

func TestBufferCopiesInput(t *testing.T) {
	buf := NewBuffer(1024)

	data := []byte("original")
	buf.Append(data)
	copy(data, "clobber!")

	assert.Equal(t, "original", string(buf.Bytes()))
}

func TestBufferEvictsOldestFirst(t *testing.T) {
	buf := NewBuffer(10)

	buf.Append([]byte("aaaa"))
	buf.Append([]byte("bbbb"))
	buf.Append([]byte("cccc"))

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "bbbb", string(snapshot[0].Data))
	assert.Equal(t, "cccc", string(snapshot[1].Data))
	assert.LessOrEqual(t, buf.Len(), 10)
}

func TestBufferSeqSurvivesEviction(t *testing.T) {
	buf := NewBuffer(8)

	for i := 0; i < 10; i++ {
		buf.Append([]byte("xxxx"))
	}

	snapshot := buf.Snapshot()
	require.NotEmpty(t, snapshot)
	for i := 1; i < len(snapshot); i++ {
		assert.Equal(t, snapshot[i-1].Seq+1, snapshot[i].Seq, "snapshot must be contiguous")
	}
	assert.Equal(t, uint64(9), snapshot[len(snapshot)-1].Seq)
}

func TestBufferKeepsOversizedChunk(t *testing.T) {
	buf := NewBuffer(4)

	big := bytes.Repeat([]byte("z"), 16)
	buf.Append(big)

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, 16, buf.Len())

	// The next small append pushes the oversized chunk out.
	buf.Append([]byte("ab"))
	snapshot = buf.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "ab", string(snapshot[0].Data))
}

func TestBufferSnapshotIsolation(t *testing.T) {
	buf := NewBuffer(1024)
	buf.Append([]byte("one"))

	snapshot := buf.Snapshot()
	buf.Append([]byte("two"))

	require.Len(t, snapshot, 1)
	assert.Equal(t, "one", string(snapshot[0].Data))
}
