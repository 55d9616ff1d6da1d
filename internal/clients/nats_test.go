package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdi-exam/roster/internal/config"
)

// fakeJS is a test double for jsContext. It records calls and returns
// preconfigured responses.
type fakeJS struct {
	streamInfoErr   error
	addStreamErr    error
	updateStreamErr error
	publishErr      error

	addStreamCalls    []string
	updateStreamCalls []string
	published         []string
}

func (f *fakeJS) StreamInfo(_ string, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.streamInfoErr != nil {
		return nil, f.streamInfoErr
	}
	return &nats.StreamInfo{}, nil
}

func (f *fakeJS) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.addStreamCalls = append(f.addStreamCalls, cfg.Name)
	return &nats.StreamInfo{}, f.addStreamErr
}

func (f *fakeJS) UpdateStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.updateStreamCalls = append(f.updateStreamCalls, cfg.Name)
	return &nats.StreamInfo{}, f.updateStreamErr
}

func (f *fakeJS) Publish(subj string, _ []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	f.published = append(f.published, subj)
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return &nats.PubAck{Stream: "CHARACTER_EVENTS"}, nil
}

// makeNATSClient builds a NATSClient backed by the provided fakeJS and counts
// how often a connection is opened.
func makeNATSClient(js jsContext, cb *gobreaker.CircuitBreaker, dials *int) *NATSClient {
	return &NATSClient{
		url:    "nats://localhost:4222",
		stream: "CHARACTER_EVENTS",
		cb:     cb,
		newJS: func(_ string) (jsContext, func(), error) {
			if dials != nil {
				*dials++
			}
			return js, func() {}, nil
		},
	}
}

func makeNATSClientWithConnErr(connErr error, cb *gobreaker.CircuitBreaker) *NATSClient {
	return &NATSClient{
		url:    "nats://localhost:4222",
		stream: "CHARACTER_EVENTS",
		cb:     cb,
		newJS: func(_ string) (jsContext, func(), error) {
			return nil, func() {}, connErr
		},
	}
}

func TestNewNATSClient(t *testing.T) {
	t.Parallel()

	client := NewNATSClient(config.EventsConfig{URL: "nats://events:4222", Stream: "S"}, NewCircuitBreaker("new-nats-test"))

	assert.Equal(t, "nats://events:4222", client.url)
	assert.Equal(t, "S", client.stream)
	assert.NotNil(t, client.newJS)
}

func TestProvisionStream(t *testing.T) {
	t.Parallel()

	t.Run("creates missing stream", func(t *testing.T) {
		t.Parallel()
		js := &fakeJS{streamInfoErr: nats.ErrStreamNotFound}
		client := makeNATSClient(js, NewCircuitBreaker("nats-create"), nil)

		require.NoError(t, client.ProvisionStream(context.Background()))
		assert.Equal(t, []string{"CHARACTER_EVENTS"}, js.addStreamCalls)
		assert.Empty(t, js.updateStreamCalls)
	})

	t.Run("updates existing stream", func(t *testing.T) {
		t.Parallel()
		js := &fakeJS{}
		client := makeNATSClient(js, NewCircuitBreaker("nats-update"), nil)

		require.NoError(t, client.ProvisionStream(context.Background()))
		assert.Empty(t, js.addStreamCalls)
		assert.Equal(t, []string{"CHARACTER_EVENTS"}, js.updateStreamCalls)
	})

	t.Run("stream info error", func(t *testing.T) {
		t.Parallel()
		js := &fakeJS{streamInfoErr: errors.New("permission denied")}
		client := makeNATSClient(js, NewCircuitBreaker("nats-info-err"), nil)

		err := client.ProvisionStream(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "querying stream")
	})

	t.Run("connection error", func(t *testing.T) {
		t.Parallel()
		client := makeNATSClientWithConnErr(errors.New("no servers available"), NewCircuitBreaker("nats-conn-err"))

		err := client.ProvisionStream(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no servers available")
	})
}

func TestPublish_ReusesConnection(t *testing.T) {
	t.Parallel()

	js := &fakeJS{}
	dials := 0
	client := makeNATSClient(js, NewCircuitBreaker("nats-publish"), &dials)

	require.NoError(t, client.Publish(context.Background(), "characters.created", []byte(`{}`)))
	require.NoError(t, client.Publish(context.Background(), "characters.deleted", []byte(`{}`)))

	assert.Equal(t, []string{"characters.created", "characters.deleted"}, js.published)
	assert.Equal(t, 1, dials)

	client.Close()
	require.NoError(t, client.Publish(context.Background(), "characters.reset", []byte(`{}`)))
	assert.Equal(t, 2, dials)
}

func TestPublish_Error(t *testing.T) {
	t.Parallel()

	js := &fakeJS{publishErr: nats.ErrNoStreamResponse}
	client := makeNATSClient(js, NewCircuitBreaker("nats-publish-err"), nil)

	err := client.Publish(context.Background(), "characters.created", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, nats.ErrNoStreamResponse)
}

func TestNATSProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		infoErr error
		wantOK  bool
	}{
		{name: "stream exists", wantOK: true},
		{name: "stream not provisioned yet", infoErr: nats.ErrStreamNotFound, wantOK: true},
		{name: "jetstream unavailable", infoErr: nats.ErrJetStreamNotEnabled, wantOK: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := makeNATSClient(&fakeJS{streamInfoErr: tc.infoErr}, NewCircuitBreaker("nats-probe-"+tc.name), nil)
			result := client.Probe(context.Background())

			assert.Equal(t, natsProbeName, result.Name)
			assert.Equal(t, tc.wantOK, result.OK)
		})
	}
}
