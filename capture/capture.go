// Package capture reads IP packets from a live interface or a pcap file and
// turns them into packet records.
package capture

import (
	"fmt"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/Zerofisher/pktdash/pkg/model"
)

// Options configure how a capture handle is opened.
type Options struct {
	SnapLen     int32
	Promiscuous bool
	BPF         string
}

// DefaultOptions matches a full-frame promiscuous capture.
func DefaultOptions() Options {
	return Options{SnapLen: 65536, Promiscuous: true}
}

// Source produces packet records until stopped or exhausted.
type Source interface {
	Start() <-chan *model.PacketRecord
	Stop()
}

// Capturer handles packet capture from interface or file
type Capturer struct {
	handle     *pcap.Handle
	packetChan chan *model.PacketRecord
	stopChan   chan struct{}
	stopOnce   sync.Once
	isLive     bool
	tee        *PcapWriter

	mu      sync.Mutex
	seen    int
	skipped int
}

// ListInterfaces returns available network interfaces
func ListInterfaces() ([]model.Interface, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, err
	}
	out := make([]model.Interface, 0, len(devs))
	for _, d := range devs {
		iface := model.Interface{Name: d.Name, Description: d.Description}
		for _, a := range d.Addresses {
			iface.Addresses = append(iface.Addresses, a.IP.String())
		}
		out = append(out, iface)
	}
	return out, nil
}

// NewLiveCapturer creates a capturer for live interface
func NewLiveCapturer(iface string, opts Options) (*Capturer, error) {
	if opts.SnapLen <= 0 {
		opts.SnapLen = 65536
	}
	handle, err := pcap.OpenLive(iface, opts.SnapLen, opts.Promiscuous, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("failed to open interface %s: %w", iface, err)
	}
	return newCapturer(handle, opts.BPF, true)
}

// NewFileCapturer creates a capturer for pcap file
func NewFileCapturer(filename string, filter string) (*Capturer, error) {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	return newCapturer(handle, filter, false)
}

func newCapturer(handle *pcap.Handle, filter string, live bool) (*Capturer, error) {
	if filter != "" {
		if err := handle.SetBPFFilter(filter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to set BPF filter: %w", err)
		}
	}

	return &Capturer{
		handle:     handle,
		packetChan: make(chan *model.PacketRecord, 1000),
		stopChan:   make(chan struct{}),
		isLive:     live,
	}, nil
}

// Tee copies every raw frame read by the capturer to w. Call before Start.
func (c *Capturer) Tee(w *PcapWriter) {
	c.tee = w
}

// LinkType returns the link layer type of the underlying handle.
func (c *Capturer) LinkType() layers.LinkType {
	return c.handle.LinkType()
}

// Start begins packet capture
func (c *Capturer) Start() <-chan *model.PacketRecord {
	go c.captureLoop()
	return c.packetChan
}

// Stop stops the capture. It is safe to call more than once.
func (c *Capturer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

// Stats returns how many frames were read and how many were not IP.
func (c *Capturer) Stats() (seen, skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen, c.skipped
}

func (c *Capturer) captureLoop() {
	defer close(c.packetChan)
	defer c.handle.Close()

	packetSource := gopacket.NewPacketSource(c.handle, c.handle.LinkType())
	packets := packetSource.Packets()

	for {
		select {
		case <-c.stopChan:
			return
		case packet, ok := <-packets:
			if !ok {
				return
			}
			if c.tee != nil {
				c.tee.WritePacket(packet.Metadata().CaptureInfo, packet.Data())
			}

			rec, ok := Decode(packet)
			c.mu.Lock()
			c.seen++
			if !ok {
				c.skipped++
			}
			c.mu.Unlock()
			if !ok {
				continue
			}

			select {
			case c.packetChan <- rec:
			case <-c.stopChan:
				return
			}
		}
	}
}

// Decode extracts the IP header fields and IP payload from packet. Frames
// without an IPv4 or IPv6 layer are reported as not ok.
func Decode(packet gopacket.Packet) (*model.PacketRecord, bool) {
	rec := &model.PacketRecord{Timestamp: packet.Metadata().Timestamp}

	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		ip := ipLayer.(*layers.IPv4)
		rec.PacketType = "IPv4"
		rec.Source = ip.SrcIP.String()
		rec.Destination = ip.DstIP.String()
		rec.Protocol = ip.Protocol.String()
		rec.Payload = clone(ip.Payload)
		return rec, true
	}

	if ipLayer := packet.Layer(layers.LayerTypeIPv6); ipLayer != nil {
		ip := ipLayer.(*layers.IPv6)
		rec.PacketType = "IPv6"
		rec.Source = ip.SrcIP.String()
		rec.Destination = ip.DstIP.String()
		rec.Protocol = ip.NextHeader.String()
		rec.Payload = clone(ip.Payload)
		return rec, true
	}

	return nil, false
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
