package tracing

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/Zerofisher/pktdash/agent/llm"
	"github.com/Zerofisher/pktdash/pkg/gateway"
	"github.com/Zerofisher/pktdash/pkg/value"
)

func resetForTest() {
	once = sync.Once{}
	provider = nil
	enabled = false
}

func TestInitWithoutKeys(t *testing.T) {
	t.Setenv("LANGFUSE_PUBLIC_KEY", "")
	t.Setenv("LANGFUSE_SECRET_KEY", "")
	resetForTest()

	if err := Init(context.Background()); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if enabled || provider != nil {
		t.Error("tracing enabled without Langfuse keys")
	}
	if tracer() == nil {
		t.Error("tracer() = nil; want the global noop tracer")
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestLangfuseFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		pub, sec string
		host     string
		wantOK   bool
		wantHost string
	}{
		{"no keys", "", "", "", false, ""},
		{"secret only", "", "sk", "", false, ""},
		{"default host", "pk", "sk", "", true, "cloud.langfuse.com"},
		{"scheme stripped", "pk", "sk", "https://langfuse.lab.internal/", true, "langfuse.lab.internal"},
		{"plain http", "pk", "sk", "http://localhost:3000", true, "localhost:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LANGFUSE_PUBLIC_KEY", tt.pub)
			t.Setenv("LANGFUSE_SECRET_KEY", tt.sec)
			t.Setenv("LANGFUSE_HOST", tt.host)

			exp, ok := langfuseFromEnv()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v; want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if exp.host != tt.wantHost {
				t.Errorf("host = %q; want %q", exp.host, tt.wantHost)
			}
			if want := "Basic " + base64.StdEncoding.EncodeToString([]byte("pk:sk")); exp.auth != want {
				t.Errorf("auth = %q; want %q", exp.auth, want)
			}
		})
	}
}

func TestAttrText(t *testing.T) {
	long := strings.Repeat("a", maxAttrLen-1) + "ä"
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "SYN from 10.0.0.1", "SYN from 10.0.0.1"},
		{"empty", "", ""},
		{"exact limit", strings.Repeat("x", maxAttrLen), strings.Repeat("x", maxAttrLen)},
		{"cut", strings.Repeat("x", maxAttrLen+3), strings.Repeat("x", maxAttrLen) + "..."},
		{"cut before split rune", long, strings.Repeat("a", maxAttrLen-1) + "..."},
		{"invalid byte", "ab\xffcd", "ab\uFFFDcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attrText(tt.in)
			if got != tt.want {
				t.Errorf("attrText(%q) = %q; want %q", tt.in, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("attrText(%q) = %q is not valid UTF-8", tt.in, got)
			}
		})
	}
}

type stubClient struct{}

func (stubClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{Content: "ok"}, nil
}
func (stubClient) Provider() llm.Provider { return llm.ProviderOllama }
func (stubClient) ModelID() string        { return "m" }

func TestWrapWhenDisabled(t *testing.T) {
	resetForTest()

	c := stubClient{}
	if _, ok := WrapClient(c).(stubClient); !ok {
		t.Error("WrapClient should return the client unchanged when tracing is disabled")
	}

	gw := gateway.NewLocal()
	if WrapGateway(gw) != gateway.Gateway(gw) {
		t.Error("WrapGateway should return the gateway unchanged when tracing is disabled")
	}
}

func TestTracedGatewayPassesResults(t *testing.T) {
	resetForTest()

	local := gateway.NewLocal()
	local.Handle(gateway.ListTableNames, func(ctx context.Context, p gateway.Params) (value.Value, error) {
		return value.Strings([]string{"packet_data_20260101000000"}), nil
	})
	traced := &TracedGateway{next: local}

	res := traced.Call(context.Background(), gateway.ListTableNames, gateway.Params{})
	if !res.OK() || res.Payload.Len() != 1 {
		t.Errorf("Call() = %+v", res)
	}
	res = traced.Call(context.Background(), gateway.GetTableData, gateway.Params{})
	if res.OK() || res.Err.Kind != gateway.KindValidation {
		t.Errorf("Call(no table) = %+v; want validation error", res)
	}

	tc := &TracedClient{client: stubClient{}}
	resp, err := tc.Chat(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	if err != nil || resp.Content != "ok" {
		t.Errorf("Chat() = %v, %v", resp, err)
	}
}
