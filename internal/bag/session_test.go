package bag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTopics() []TopicSpec {
	return []TopicSpec{
		{Name: "scan", Type: "msgs/LaserScan"},
		{Name: "pose", Type: "msgs/PoseStamped"},
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	s := NewSession(t.TempDir(), testTopics())
	assert.False(t, s.IsOpen())

	require.NoError(t, s.Open())
	assert.True(t, s.IsOpen())
	path := s.Path()
	assert.NotEmpty(t, path)

	// Open while already open is a no-op.
	require.NoError(t, s.Open())
	assert.Equal(t, path, s.Path())

	s.Write(100, map[string][]byte{"scan": []byte(`{"a":1}`), "pose": []byte(`{"b":2}`)})
	s.Write(200, map[string][]byte{"scan": []byte(`{"a":3}`), "pose": []byte(`{"b":4}`)})
	assert.Equal(t, uint64(2), s.MessageCount())

	s.Close()
	assert.False(t, s.IsOpen())

	// Close on a closed session is a no-op.
	s.Close()

	info, err := ReadInfo(path)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, int64(4), info.Messages)
	require.Len(t, info.Topics, 2)
	assert.Equal(t, "scan", info.Topics[0].Name)
	assert.Equal(t, "msgs/LaserScan", info.Topics[0].Type)
	assert.Equal(t, int64(2), info.Topics[0].Messages)
}

func TestWriteWhileClosedIsDropped(t *testing.T) {
	t.Parallel()

	s := NewSession(t.TempDir(), testTopics())
	s.Write(100, map[string][]byte{"scan": []byte(`{}`)})
	assert.Equal(t, uint64(0), s.MessageCount())
	assert.False(t, s.IsOpen())
}

func TestCloseNeverOpenedIsNoop(t *testing.T) {
	t.Parallel()

	s := NewSession(t.TempDir(), testTopics())
	s.Close()
	s.Close()
	assert.False(t, s.IsOpen())
}

func TestCloseFlushesEmptySession(t *testing.T) {
	t.Parallel()

	s := NewSession(t.TempDir(), testTopics())
	require.NoError(t, s.Open())
	path := s.Path()
	s.Close()

	info, err := ReadInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Messages)
	require.Len(t, info.Topics, 2)
}

func TestReopenCreatesNewContainer(t *testing.T) {
	t.Parallel()

	s := NewSession(t.TempDir(), testTopics())
	require.NoError(t, s.Open())
	first := s.Path()
	s.Close()

	require.NoError(t, s.Open())
	second := s.Path()
	s.Close()

	assert.NotEqual(t, first, second)
}

func TestWriteUnknownTopicIgnored(t *testing.T) {
	t.Parallel()

	s := NewSession(t.TempDir(), testTopics())
	require.NoError(t, s.Open())
	s.Write(100, map[string][]byte{"mystery": []byte(`{}`), "scan": []byte(`{}`)})
	path := s.Path()
	s.Close()

	info, err := ReadInfo(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Messages, "only registered topics are recorded")
}
