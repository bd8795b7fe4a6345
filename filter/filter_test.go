package filter

import (
	"testing"
	"time"

	"github.com/Zerofisher/pktdash/pkg/model"
)

func rows() model.ResultSet {
	recs := []*model.PacketRecord{
		{ID: 1, PacketType: "IPv4", Source: "10.0.0.1", Destination: "8.8.8.8", Protocol: "UDP", Payload: []byte("dns")},
		{ID: 2, PacketType: "IPv4", Source: "8.8.8.8", Destination: "10.0.0.1", Protocol: "UDP", Payload: []byte("answer")},
		{ID: 3, PacketType: "IPv4", Source: "10.0.0.1", Destination: "1.1.1.1", Protocol: "TCP", Payload: []byte("GET / HTTP/1.1")},
		{ID: 4, PacketType: "IPv6", Source: "fe80::1", Destination: "ff02::fb", Protocol: "UDP"},
		{ID: 5, PacketType: "IPv6", Source: "fe80::1", Destination: "fe80::2", Protocol: "ICMPv6"},
	}
	var rs model.ResultSet
	for _, r := range recs {
		r.Timestamp = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		rs = append(rs, r.Row())
	}
	return rs
}

func ids(rs model.ResultSet) []int64 {
	var out []int64
	for _, r := range rs {
		v, _ := r.Get("id")
		n, _ := v.AsInt()
		out = append(out, n)
	}
	return out
}

func TestCompileAndApply(t *testing.T) {
	tests := []struct {
		filter string
		want   []int64
	}{
		{"", []int64{1, 2, 3, 4, 5}},
		{"tcp", []int64{3}},
		{"udp && ipv4", []int64{1, 2}},
		{"ipv6", []int64{4, 5}},
		{"icmpv6", []int64{5}},
		{`protocol == "UDP"`, []int64{1, 2, 4}},
		{"ip.src == 10.0.0.1", []int64{1, 3}},
		{"ip.addr == 10.0.0.1", []int64{1, 2, 3}},
		{"ip.addr != 10.0.0.1", []int64{4, 5}},
		{"ip.dst == fe80::2", []int64{5}},
		{`protocol in {"TCP", "ICMPv6"}`, []int64{3, 5}},
		{`payload_string contains "HTTP"`, []int64{3}},
		{"frame.len > 5", []int64{2, 3}},
		{`source == "tcp"`, nil},
		{"id >= 4", []int64{4, 5}},
		{"not udp", []int64{3, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f, err := Compile(tt.filter)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tt.filter, err)
			}
			got := ids(Apply(f, rows()))
			if len(got) != len(tt.want) {
				t.Fatalf("Apply(%q) = %v; want %v", tt.filter, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Apply(%q) = %v; want %v", tt.filter, got, tt.want)
				}
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	for _, s := range []string{"source ==", `protocol`, "((tcp"} {
		if _, err := Compile(s); err == nil {
			t.Errorf("Compile(%q) expected error", s)
		}
	}
}

func TestNilFilter(t *testing.T) {
	var f *Filter
	if !f.Empty() || f.String() != "" {
		t.Error("nil filter should be empty")
	}
	if got := Apply(f, rows()); len(got) != 5 {
		t.Errorf("Apply(nil) = %d rows; want 5", len(got))
	}
}

func TestPreprocessFilter(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tcp", "is_tcp"},
		{"ip.proto == \"tcp\"", "ip.proto == \"tcp\""},
		{"ip.src == 10.0.0.1", `ip.src == "10.0.0.1"`},
		{"ip.addr == 10.0.0.1", `(ip.src == "10.0.0.1" or ip.dst == "10.0.0.1")`},
		{`protocol in {"TCP"}`, `protocol in ["TCP"]`},
	}
	for _, tt := range tests {
		if got := preprocessFilter(tt.in); got != tt.want {
			t.Errorf("preprocessFilter(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
