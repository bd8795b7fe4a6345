package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Zerofisher/pktdash/capture"
	"github.com/Zerofisher/pktdash/internal/config"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// CaptureManagerConfig maps the capture section of cfg onto the session
// manager settings.
func CaptureManagerConfig(cfg *config.Config) capture.ManagerConfig {
	return capture.ManagerConfig{
		Capture: capture.Options{
			SnapLen:     cfg.Capture.SnapLen,
			Promiscuous: cfg.Capture.Promiscuous,
			BPF:         cfg.Capture.BPF,
		},
		BatchSize:     cfg.Capture.BatchSize,
		FlushInterval: cfg.Capture.FlushInterval,
		PcapDir:       cfg.Capture.PcapDir,
	}
}

func (b *Backend) startCapture(ctx context.Context, p gateway.Params) (value.Value, error) {
	sess, err := b.sessions.Start(ctx, p.Interface)
	if err != nil {
		return value.Null(), captureError(err)
	}
	return value.Object(
		value.F("table", value.String(sess.Table)),
		value.F("interface", value.String(sess.Interface)),
	), nil
}

func (b *Backend) stopCapture(ctx context.Context, _ gateway.Params) (value.Value, error) {
	sess, err := b.sessions.Stop(ctx)
	if sess == nil {
		return value.Null(), captureError(err)
	}
	if err != nil {
		// The session is closed either way; report the partial result.
		b.logger.Warn().Err(err).Str("table", sess.Table).Msg("capture ended with error")
	}
	return value.Object(
		value.F("table", value.String(sess.Table)),
		value.F("packets", value.Int(sess.Packets)),
	), nil
}

// captureError tags session state conflicts so a client can resync its
// capture control instead of retrying.
func captureError(err error) error {
	switch {
	case errors.Is(err, capture.ErrNotRunning):
		return gateway.Errorf(gateway.KindBackend, "%v", err).WithCode(gateway.CodeNotRunning)
	case errors.Is(err, capture.ErrAlreadyRunning):
		return gateway.Errorf(gateway.KindBackend, "%v", err).WithCode(gateway.CodeAlreadyRunning)
	}
	return err
}

func (b *Backend) interfaces(ctx context.Context, _ gateway.Params) (value.Value, error) {
	ifaces, err := b.listInterfaces()
	if err != nil {
		return value.Null(), fmt.Errorf("list devices: %w", err)
	}
	return gateway.EncodeInterfaces(ifaces), nil
}

// ImportFile records the IP packets of a pcap or pcapng file into a new
// session table.
func (b *Backend) ImportFile(ctx context.Context, path, bpf string) (*model.CaptureSession, error) {
	src, err := capture.NewFileCapturer(path, bpf)
	if err != nil {
		return nil, err
	}
	sess, err := b.sessions.Import(ctx, filepath.Base(path), src)
	if errors.Is(err, capture.ErrAlreadyRunning) {
		src.Stop()
	}
	return sess, err
}
