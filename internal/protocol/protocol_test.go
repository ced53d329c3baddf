package protocol

import (
	"bytes"
	"encoding/binary"
	"net"
	"strings"
	"testing"
	"time"
)

func TestWriteReadRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"reset", Message{Kind: KindReset}},
		{"run", Message{Kind: KindRun}},
		{"ack", Message{Kind: KindAck}},
		{"nack with reason", Message{Kind: KindNack, Reason: "busy"}},
		{"ready accepted", Message{Kind: KindReady, ConfigOK: true}},
		{"ready rejected", Message{Kind: KindReady, ConfigOK: false, Reason: "bad memory map"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteFrame(&buf, tt.msg); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}

			got, err := ReadFrame(&buf)
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if got != tt.msg {
				t.Errorf("roundtrip = %+v, want %+v", got, tt.msg)
			}
		})
	}
}

// TestReadFrameFragmented verifies that a frame delivered one byte at a time
// is reassembled correctly. OS pipes routinely split writes this way.
func TestReadFrameFragmented(t *testing.T) {
	var buf bytes.Buffer
	want := Message{Kind: KindNack, Reason: "checkpoint restore failed"}
	if err := WriteFrame(&buf, want); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	raw := buf.Bytes()

	client, server := net.Pipe()
	defer client.Close()

	go func() {
		defer server.Close()
		for _, b := range raw {
			if _, err := server.Write([]byte{b}); err != nil {
				return
			}
		}
	}()

	_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
	got, err := ReadFrame(client)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got != want {
		t.Errorf("ReadFrame = %+v, want %+v", got, want)
	}
}

func TestReadFrameOversize(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], MaxFrameSize+1)
	buf.Write(header[:])

	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("ReadFrame accepted an oversize frame")
	} else if !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Message{Kind: KindAck}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	raw := buf.Bytes()

	// Chop the body short; the reader must report an error, not hang or
	// return a partial message.
	if _, err := ReadFrame(bytes.NewReader(raw[:len(raw)-2])); err == nil {
		t.Fatal("ReadFrame accepted a truncated frame")
	}
}

func TestReadFrameGarbageBody(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("{not json")
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	buf.Write(header[:])
	buf.Write(body)

	if _, err := ReadFrame(&buf); err == nil {
		t.Fatal("ReadFrame accepted a garbage body")
	}
}

func TestReadFrameEOF(t *testing.T) {
	if _, err := ReadFrame(bytes.NewReader(nil)); err == nil {
		t.Fatal("ReadFrame on empty stream should fail")
	} else if !strings.Contains(err.Error(), "header") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestBackToBackFrames verifies that consecutive frames on one stream stay
// delimited.
func TestBackToBackFrames(t *testing.T) {
	var buf bytes.Buffer
	msgs := []Message{
		{Kind: KindReset},
		{Kind: KindAck},
		{Kind: KindRun},
		{Kind: KindNack, Reason: "not ready"},
	}
	for _, m := range msgs {
		if err := WriteFrame(&buf, m); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range msgs {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame #%d: %v", i, err)
		}
		if got != want {
			t.Errorf("frame #%d = %+v, want %+v", i, got, want)
		}
	}
	if _, err := ReadFrame(&buf); err == nil || !strings.Contains(err.Error(), "header") {
		t.Errorf("expected clean EOF after last frame, got %v", err)
	}
}
