package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PcapWriter keeps a pcapng copy of the raw frames of a capture session.
type PcapWriter struct {
	file     *os.File
	writer   *pcapgo.NgWriter
	mu       sync.Mutex
	count    int
	filename string
	closed   bool
}

// NewPcapWriter creates a pcapng file for frames of the given link type.
func NewPcapWriter(filename string, linkType layers.LinkType, snapLen uint32) (*PcapWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filename, err)
	}

	writer, err := pcapgo.NewNgWriterInterface(file, pcapgo.NgInterface{
		Name:       "pktdash",
		LinkType:   linkType,
		SnapLength: snapLen,
	}, pcapgo.NgWriterOptions{
		SectionInfo: pcapgo.NgSectionInfo{Application: "pktdash"},
	})
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create pcapng writer: %w", err)
	}

	return &PcapWriter{file: file, writer: writer, filename: filename}, nil
}

// WritePacket appends one frame. Empty frames are skipped.
func (w *PcapWriter) WritePacket(ci gopacket.CaptureInfo, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(data) == 0 {
		return nil
	}
	if ci.CaptureLength == 0 {
		ci.CaptureLength = len(data)
	}
	if ci.Length < ci.CaptureLength {
		ci.Length = ci.CaptureLength
	}

	if err := w.writer.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	w.count++
	return nil
}

// Close flushes and closes the file.
func (w *PcapWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of frames written.
func (w *PcapWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Filename returns the output path.
func (w *PcapWriter) Filename() string {
	return w.filename
}

// SessionFilename names the pcapng copy of a session table.
func SessionFilename(dir, table string) string {
	return filepath.Join(dir, table+".pcapng")
}
