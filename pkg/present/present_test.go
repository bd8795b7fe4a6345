package present

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Zerofisher/pktdash/pkg/value"
)

func objectWithKeys(n int) value.Value {
	fields := make([]value.Field, n)
	for i := range fields {
		fields[i] = value.F(fmt.Sprintf("k%d", i+1), value.Int(int64(i+1)))
	}
	return value.Object(fields...)
}

func TestPresentStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
		text string
	}{
		{"empty", "", Inline, ""},
		{"exactly fifteen", "abcdefghijklmno", Inline, "abcdefghijklmno"},
		{"sixteen", "abcdefghijklmnop", Collapsible, "abcdefghij…lmnop"},
		{"long payload", "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ", Collapsible, "0123456789…VWXYZ"},
		{"multibyte fifteen", strings.Repeat("ü", 15), Inline, strings.Repeat("ü", 15)},
		{"multibyte sixteen", strings.Repeat("ü", 16), Collapsible, strings.Repeat("ü", 10) + "…" + strings.Repeat("ü", 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Present(value.String(tt.in))
			if u.Kind != tt.kind {
				t.Errorf("Present(%q).Kind = %v; want %v", tt.in, u.Kind, tt.kind)
			}
			if u.Text != tt.text {
				t.Errorf("Present(%q).Text = %q; want %q", tt.in, u.Text, tt.text)
			}
			if u.Kind == Collapsible {
				if s, _ := u.Full.AsString(); s != tt.in {
					t.Errorf("Present(%q).Full = %q; want original", tt.in, s)
				}
			}
		})
	}
}

func TestPresentObjects(t *testing.T) {
	seven := objectWithKeys(7)
	u := Present(seven)
	if u.Kind != Inline {
		t.Fatalf("7-key object Kind = %v; want inline", u.Kind)
	}
	if u.Text != seven.Pretty() {
		t.Errorf("7-key object Text = %q; want %q", u.Text, seven.Pretty())
	}

	eight := objectWithKeys(8)
	u = Present(eight)
	if u.Kind != Collapsible {
		t.Fatalf("8-key object Kind = %v; want collapsible", u.Kind)
	}
	reduced, err := value.Parse([]byte(u.Text))
	if err != nil {
		t.Fatalf("summary is not JSON: %v", err)
	}
	wantKeys := []string{"k1", "k2", "k3", "k4", "k5", "…", "k7", "k8"}
	gotKeys := reduced.Keys()
	if strings.Join(gotKeys, ",") != strings.Join(wantKeys, ",") {
		t.Errorf("summary keys = %v; want %v", gotKeys, wantKeys)
	}
	marker, _ := reduced.Get("…")
	if s, _ := marker.AsString(); s != "…" {
		t.Errorf("marker value = %q; want …", s)
	}
	if !value.Equal(u.Full, eight) {
		t.Errorf("Full = %s; want original", u.Full.Compact())
	}
}

func TestReduceMarkerKeyCollision(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		wantKeys []string
	}{
		{"marker in head", []string{"a", "…", "c", "d", "e", "f", "g", "h"},
			[]string{"a", "…", "c", "d", "e", "……", "g", "h"}},
		{"marker in tail", []string{"a", "b", "c", "d", "e", "f", "…", "h"},
			[]string{"a", "b", "c", "d", "e", "……", "…", "h"}},
		{"both marker lengths taken", []string{"…", "……", "c", "d", "e", "f", "g", "h"},
			[]string{"…", "……", "c", "d", "e", "………", "g", "h"}},
		{"marker in dropped middle", []string{"a", "b", "c", "d", "e", "…", "g", "h"},
			[]string{"a", "b", "c", "d", "e", "…", "g", "h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := make([]value.Field, len(tt.keys))
			for i, k := range tt.keys {
				fields[i] = value.F(k, value.Int(int64(i+1)))
			}
			obj := value.Object(fields...)

			reduced := Reduce(obj)
			if got := strings.Join(reduced.Keys(), ","); got != strings.Join(tt.wantKeys, ",") {
				t.Errorf("Reduce() keys = %s; want %s", got, strings.Join(tt.wantKeys, ","))
			}
			for i, k := range tt.keys {
				if i >= 5 && i < len(tt.keys)-2 {
					continue
				}
				got, _ := reduced.Get(k)
				if !value.Equal(got, value.Int(int64(i+1))) {
					t.Errorf("kept field %q = %s; want %d", k, got.Compact(), i+1)
				}
			}
		})
	}
}

func TestPresentArrays(t *testing.T) {
	small := value.Array(value.Int(1), value.Int(2))
	if u := Present(small); u.Kind != Inline {
		t.Errorf("2-item array Kind = %v; want inline", u.Kind)
	}
	payload, _ := value.FromNative([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	u := Present(payload)
	if u.Kind != Collapsible {
		t.Fatalf("10-item array Kind = %v; want collapsible", u.Kind)
	}
	if got := OneLine(u); got != `[ 1, 2, 3, 4, 5, "…", 9, 10 ]` {
		t.Errorf("OneLine() = %q", got)
	}
}

func TestPresentPrimitives(t *testing.T) {
	tests := []struct {
		in   value.Value
		want string
	}{
		{value.Null(), "null"},
		{value.Bool(false), "false"},
		{value.Int(1234567890123456789), "1234567890123456789"},
		{value.Float(0.5), "0.5"},
	}
	for _, tt := range tests {
		u := Present(tt.in)
		if u.Kind != Inline || u.Text != tt.want {
			t.Errorf("Present(%v) = %v %q; want inline %q", tt.in, u.Kind, u.Text, tt.want)
		}
	}
}

func TestPresentExpandIsStable(t *testing.T) {
	inputs := []value.Value{
		value.String("a string that is clearly longer than fifteen"),
		objectWithKeys(12),
		value.Array(value.Int(1), value.Int(2), value.Int(3), value.Int(4), value.Int(5), value.Int(6), value.Int(7), value.Int(8)),
	}
	for _, in := range inputs {
		first := Present(in)
		if !first.Expandable() {
			t.Fatalf("Present(%s) not expandable", in.Compact())
		}
		again := Present(first.Full)
		if again.Kind != first.Kind || again.Text != first.Text || !value.Equal(again.Full, first.Full) {
			t.Errorf("Present(Full) differs for %s", in.Compact())
		}
	}
}

func TestPresentDoesNotMutate(t *testing.T) {
	in := objectWithKeys(9)
	before := in.Compact()
	Present(in)
	Reduce(in)
	if in.Compact() != before {
		t.Errorf("input changed: %s", in.Compact())
	}
}

func TestRow(t *testing.T) {
	row := value.Object(value.F("id", value.Int(1)), value.F("protocol", value.String("TCP")))
	units := Row(row, []string{"id", "protocol", "missing"})
	got := []string{units[0].Text, units[1].Text, units[2].Text}
	want := []string{"1", "TCP", "null"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Row()[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}
