package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Zerofisher/pktdash/agent/llm"
	"github.com/Zerofisher/pktdash/pkg/model"
)

type fakeClient struct {
	reply string
	err   error
	got   *llm.ChatRequest
}

func (c *fakeClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	c.got = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ChatResponse{Content: c.reply}, nil
}

func (c *fakeClient) Provider() llm.Provider { return llm.ProviderOllama }
func (c *fakeClient) ModelID() string        { return "llama3.1" }

type fakeRows struct {
	records []*model.PacketRecord
	filter  model.AnalysisFilter
	limit   int
}

func (r *fakeRows) SampleRows(ctx context.Context, f model.AnalysisFilter, limit int) ([]*model.PacketRecord, error) {
	r.filter = f
	r.limit = limit
	if len(r.records) > limit {
		return r.records[:limit], nil
	}
	return r.records, nil
}

func sampleRecords(n int) []*model.PacketRecord {
	out := make([]*model.PacketRecord, n)
	for i := range out {
		out[i] = &model.PacketRecord{
			ID:          int64(i + 1),
			Timestamp:   time.Date(2026, 5, 1, 10, 0, i, 0, time.UTC),
			PacketType:  "IPv4",
			Source:      "10.0.0.1",
			Destination: "10.0.0.2",
			Protocol:    "UDP",
			Payload:     []byte("line1\nline2"),
		}
	}
	return out
}

func TestAnalyze(t *testing.T) {
	client := &fakeClient{reply: "Mostly UDP chatter."}
	rows := &fakeRows{records: sampleRecords(60)}
	a := NewAnalyst(client, rows, 0)

	f := model.AnalysisFilter{Table: "packet_data_20260501100000", Protocol: "UDP"}
	got, err := a.Analyze(context.Background(), f)
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	if rows.limit != DefaultSampleRows {
		t.Errorf("sample limit = %d; want %d", rows.limit, DefaultSampleRows)
	}
	if rows.filter != f {
		t.Errorf("filter = %+v; want %+v", rows.filter, f)
	}
	if got.Rows != DefaultSampleRows || got.Response != "Mostly UDP chatter." || got.Model != "llama3.1" {
		t.Errorf("Analyze() = %+v", got)
	}
	prompt := client.got.Messages[0].Content
	if !strings.HasPrefix(prompt, PromptHeader+"\n") {
		t.Errorf("prompt header missing: %q", prompt[:40])
	}
	if n := strings.Count(prompt, "\n"); n != DefaultSampleRows {
		t.Errorf("prompt has %d lines after header; want %d", n, DefaultSampleRows)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	a := NewAnalyst(&fakeClient{}, &fakeRows{}, 10)
	if _, err := a.Analyze(context.Background(), model.AnalysisFilter{Table: "t"}); !errors.Is(err, ErrNoPackets) {
		t.Errorf("Analyze() with no rows = %v; want ErrNoPackets", err)
	}

	boom := errors.New("connection refused")
	a = NewAnalyst(&fakeClient{err: boom}, &fakeRows{records: sampleRecords(1)}, 10)
	if _, err := a.Analyze(context.Background(), model.AnalysisFilter{Table: "t"}); !errors.Is(err, boom) {
		t.Errorf("Analyze() = %v; want %v", err, boom)
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt(sampleRecords(1))
	want := PromptHeader + "\nTimestamp: 2026-05-01T10:00:00.000Z, Packet Type: IPv4, Source: 10.0.0.1, Destination: 10.0.0.2, Protocol: UDP, Payload (String): line1 line2"
	if got != want {
		t.Errorf("BuildPrompt() =\n%q\nwant\n%q", got, want)
	}
}

func TestRedactedPrompt(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	recs := sampleRecords(1)
	recs[0].Source = "8.8.8.8"
	recs[0].Payload = []byte("GET /login?user=bob HTTP/1.1\r\nCookie: session=abc\r\n")
	a := NewAnalyst(client, &fakeRows{records: recs}, 10)
	a.SetRedaction(DefaultRedactConfig())

	if _, err := a.Analyze(context.Background(), model.AnalysisFilter{Table: "t"}); err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	prompt := client.got.Messages[0].Content
	for _, leak := range []string{"8.8.8.8", "10.0.0.2", "user=bob", "session=abc"} {
		if strings.Contains(prompt, leak) {
			t.Errorf("prompt leaks %q: %s", leak, prompt)
		}
	}
	if !strings.Contains(prompt, "Source: IP["+hashShort("8.8.8.8")+"]") {
		t.Errorf("prompt missing source pseudonym: %s", prompt)
	}
	if !strings.Contains(prompt, "Destination: 10.0.x.x[") {
		t.Errorf("private destination should keep its prefix: %s", prompt)
	}
}

func TestRedactText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		cfg  *RedactConfig
		want string
	}{
		{"nil config", "10.1.2.3", nil, "10.1.2.3"},
		{"disabled", "10.1.2.3", &RedactConfig{RedactIPs: true}, "10.1.2.3"},
		{"public ip", "to 1.2.3.4", DefaultRedactConfig(), "to IP[" + hashShort("1.2.3.4") + "]"},
		{"mac", "aa:bb:cc:dd:ee:ff", DefaultRedactConfig(), "aa:bb:cc:xx:xx:xx[" + hashShort("aa:bb:cc:dd:ee:ff") + "]"},
		{"auth header", "Authorization: Bearer t", DefaultRedactConfig(), "Authorization: [REDACTED-" + hashShort("Bearer t") + "]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactText(tt.in, tt.cfg); got != tt.want {
				t.Errorf("RedactText(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampString(t *testing.T) {
	if got := ClampString("héllo", 2); got != "hé..." {
		t.Errorf("ClampString() = %q", got)
	}
	if got := ClampString("hello", 0); got != "hello" {
		t.Errorf("ClampString() with no limit = %q", got)
	}
}
