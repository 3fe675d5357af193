package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ssec-chat/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const streamBufferSize = 64

// SSE event names
const (
	eventSnapshot = "snapshot"
	eventEntry    = "entry"
	eventStatus   = "status"
)

type sseEvent struct {
	name string
	data []byte
}

// eventStream is one connected browser. When its buffer overflows the stream is marked
// stale and the writer sends a fresh snapshot instead of the dropped events.
type eventStream struct {
	events chan sseEvent
	stale  atomic.Bool
}

type eventHub struct {
	mu        sync.RWMutex
	streams   map[*eventStream]struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newEventHub() *eventHub {
	return &eventHub{
		streams: make(map[*eventStream]struct{}),
		done:    make(chan struct{}),
	}
}

func (h *eventHub) add() *eventStream {
	stream := &eventStream{events: make(chan sseEvent, streamBufferSize)}
	h.mu.Lock()
	h.streams[stream] = struct{}{}
	count := len(h.streams)
	h.mu.Unlock()
	logrus.Debugf("Event stream connected, %d open", count)
	return stream
}

func (h *eventHub) remove(stream *eventStream) {
	h.mu.Lock()
	delete(h.streams, stream)
	count := len(h.streams)
	h.mu.Unlock()
	logrus.Debugf("Event stream disconnected, %d open", count)
}

// publish never blocks the transcript writer
func (h *eventHub) publish(event sseEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for stream := range h.streams {
		select {
		case stream.events <- event:
		default:
			stream.stale.Store(true)
		}
	}
}

func (h *eventHub) close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// StreamEvents godoc
// @Summary Transcript event stream
// @Description Server-sent events: a snapshot on connect, then entry and status events
// @Tags CHAT
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /v1/api/events [get]
func (hdl *HTTPHandler) StreamEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	stream := hdl.hub.add()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer hdl.hub.remove(stream)
		if err := hdl.serveStream(w, stream); err != nil {
			logrus.Debugf("Event stream closed: %v", err)
		}
	}))
	return nil
}

// serveStream writes events until the client goes away or the handler is closed
func (hdl *HTTPHandler) serveStream(w *bufio.Writer, stream *eventStream) error {
	if err := hdl.writeSnapshot(w); err != nil {
		return err
	}

	ticker := time.NewTicker(hdl.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-hdl.hub.done:
			return nil
		case event := <-stream.events:
			if stream.stale.Swap(false) {
				drain(stream.events)
				if err := hdl.writeSnapshot(w); err != nil {
					return err
				}
				continue
			}
			if err := writeEvent(w, event); err != nil {
				return err
			}
		case <-ticker.C:
			if stream.stale.Swap(false) {
				drain(stream.events)
				if err := hdl.writeSnapshot(w); err != nil {
					return err
				}
				continue
			}
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func (hdl *HTTPHandler) writeSnapshot(w *bufio.Writer) error {
	data, err := json.Marshal(hdl.snapshot())
	if err != nil {
		return err
	}
	return writeEvent(w, sseEvent{name: eventSnapshot, data: data})
}

// onTranscriptEvent runs synchronously inside the transcript store's notification
func (hdl *HTTPHandler) onTranscriptEvent(event domain.TranscriptEvent) {
	kind := "updated"
	if event.Kind == domain.TranscriptEventAppended {
		kind = "appended"
	}
	payload := EntryEvent{
		Kind:   kind,
		Entry:  hdl.toEntryResponse(event.Index, event.Entry),
		Status: toStatusResponse(hdl.srv.Status()),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.Errorf("Failed to encode entry event: %v", err)
		return
	}
	hdl.hub.publish(sseEvent{name: eventEntry, data: data})
}

func (hdl *HTTPHandler) publishStatus() {
	data, err := json.Marshal(toStatusResponse(hdl.srv.Status()))
	if err != nil {
		logrus.Errorf("Failed to encode status event: %v", err)
		return
	}
	hdl.hub.publish(sseEvent{name: eventStatus, data: data})
}

func writeEvent(w *bufio.Writer, event sseEvent) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.name, event.data); err != nil {
		return err
	}
	return w.Flush()
}

func drain(events chan sseEvent) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}
