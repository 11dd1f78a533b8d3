package link

import (
	"errors"
	"testing"
	"time"

	"github.com/brutella/can"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/wheel-sensor/internal/message"
)

// fakeToken is a paho.Token that is already complete, or never completes.
type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeMQTTClient struct {
	open         bool
	token        *fakeToken
	published    []published
	disconnected bool
}

func (c *fakeMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &fakeToken{}
}

func (c *fakeMQTTClient) IsConnectionOpen() bool { return c.open }
func (c *fakeMQTTClient) Disconnect(uint)        { c.disconnected = true }

func TestMQTTLinkSend(t *testing.T) {
	client := &fakeMQTTClient{open: true}
	l := newMQTTLink(client, "wheel/link", time.Millisecond)

	frame := message.EncodeActuationCommand(2, message.StateOpen)
	require.NoError(t, l.Send(frame))

	require.Len(t, client.published, 1)
	p := client.published[0]
	assert.Equal(t, "wheel/link", p.topic)
	assert.Equal(t, byte(0), p.qos, "frames are fire-and-forget")
	assert.False(t, p.retained)
	assert.Equal(t, frame, p.payload)
	assert.True(t, l.IsConnected())
}

func TestMQTTLinkSendNotConnected(t *testing.T) {
	client := &fakeMQTTClient{open: false}
	l := newMQTTLink(client, "wheel/link", time.Millisecond)

	assert.Error(t, l.Send(message.EncodeRPMReport(1)))
	assert.Empty(t, client.published, "nothing is queued while disconnected")
}

func TestMQTTLinkSendErrors(t *testing.T) {
	client := &fakeMQTTClient{open: true, token: &fakeToken{pending: true}}
	l := newMQTTLink(client, "wheel/link", time.Millisecond)
	assert.ErrorContains(t, l.Send(message.EncodeRPMReport(1)), "timeout")

	client.token = &fakeToken{err: errors.New("broker gone")}
	assert.ErrorContains(t, l.Send(message.EncodeRPMReport(1)), "broker gone")
}

func TestMQTTLinkClose(t *testing.T) {
	client := &fakeMQTTClient{open: true}
	l := newMQTTLink(client, "wheel/link", time.Millisecond)
	require.NoError(t, l.Close())
	assert.True(t, client.disconnected)
}

func TestNewMQTTLinkRequiresBroker(t *testing.T) {
	_, err := NewMQTTLink(MQTTConfig{})
	assert.Error(t, err)
}

func TestStatusTopic(t *testing.T) {
	assert.Equal(t, "wheel/link/status", StatusTopic("wheel/link"))
}

type fakeBus struct {
	frames       []can.Frame
	err          error
	disconnected int
}

func (b *fakeBus) Publish(f can.Frame) error {
	if b.err != nil {
		return b.err
	}
	b.frames = append(b.frames, f)
	return nil
}

func (b *fakeBus) Disconnect() error {
	b.disconnected++
	return nil
}

func TestCANLinkRoutesByTag(t *testing.T) {
	bus := &fakeBus{}
	l := newCANLink(bus, 0x120, 0x121)

	require.NoError(t, l.Send(message.EncodeRPMReport(42)))
	require.NoError(t, l.Send(message.EncodeActuationCommand(1, message.StateOpen)))

	require.Len(t, bus.frames, 2)
	assert.Equal(t, uint32(0x120), bus.frames[0].ID)
	assert.Equal(t, uint8(message.RPMReportSize), bus.frames[0].Length)
	assert.Equal(t, byte('R'), bus.frames[0].Data[0])

	assert.Equal(t, uint32(0x121), bus.frames[1].ID)
	assert.Equal(t, uint8(message.CommandSize), bus.frames[1].Length)
	assert.Equal(t, [8]byte{'C', 1, 0}, bus.frames[1].Data)
}

func TestCANLinkRejectsBadFrames(t *testing.T) {
	l := newCANLink(&fakeBus{}, 0x120, 0x121)
	assert.Error(t, l.Send(nil))
	assert.Error(t, l.Send(make([]byte, 9)))
}

func TestCANLinkPublishError(t *testing.T) {
	bus := &fakeBus{err: errors.New("no buffer space")}
	l := newCANLink(bus, 0x120, 0x121)
	assert.ErrorContains(t, l.Send(message.EncodeRPMReport(1)), "no buffer space")
}

func TestCANLinkCloseOnce(t *testing.T) {
	bus := &fakeBus{}
	l := newCANLink(bus, 0x120, 0x121)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 1, bus.disconnected)
	assert.False(t, l.IsConnected())
}

func TestBeginUnknownTransport(t *testing.T) {
	_, err := Begin(Config{Transport: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown link transport")
}

func TestFakeLink(t *testing.T) {
	f := NewFakeLink()
	frame := []byte{'C', 1, 0}
	require.NoError(t, f.Send(frame))
	frame[1] = 9 // caller reuse must not affect the record

	assert.Equal(t, [][]byte{{'C', 1, 0}}, f.Sent())

	f.SendError = errors.New("saturated")
	assert.Error(t, f.Send(frame))
	assert.Equal(t, 2, f.Attempts)
	assert.Len(t, f.Sent(), 1)
}
