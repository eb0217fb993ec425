package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := newNATSPublisher(conn, "fixit", zap.NewNop().Sugar())

	err := p.Publish(context.Background(), IssueEvent{
		Type:            IssueStatusChanged,
		IssueID:         12,
		ReferenceNumber: "ISS-20240101-ABCDEFGH",
		Status:          "COMPLETED",
		PreviousStatus:  "IN_PROGRESS",
	})
	require.NoError(t, err)
	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "fixit.issues.status_changed", conn.subjects[0])

	var got IssueEvent
	require.NoError(t, json.Unmarshal(conn.payloads[0], &got))
	assert.Equal(t, uint(12), got.IssueID)
	assert.False(t, got.OccurredAt.IsZero())

	p.Close()
	assert.True(t, conn.drained)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	p := newNATSPublisher(&fakeConn{err: errors.New("down")}, "", zap.NewNop().Sugar())
	assert.Error(t, p.Publish(context.Background(), IssueEvent{Type: IssueCreated}))
	assert.Equal(t, IssueCreated, p.Subject(IssueCreated))
}

func TestNew_NoURLIsNoop(t *testing.T) {
	p, err := New("", "fixit", zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), IssueEvent{}))
}
