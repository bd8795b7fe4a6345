package gateway

import (
	"github.com/Zerofisher/pktdash/pkg/model"
	"github.com/Zerofisher/pktdash/pkg/value"
)

// Payload decoders turn a successful payload into typed data. A payload of
// the wrong shape yields a parse error.

// DecodeInterfaces reads a list_interfaces payload.
func DecodeInterfaces(v value.Value) ([]model.Interface, *Error) {
	if v.Kind() != value.KindArray {
		return nil, Errorf(KindParse, "interfaces: expected array, got %s", v.Kind())
	}
	items := v.Items()
	out := make([]model.Interface, 0, len(items))
	for i, it := range items {
		switch it.Kind() {
		case value.KindString:
			name, _ := it.AsString()
			out = append(out, model.Interface{Name: name})
		case value.KindObject:
			nv, _ := it.Get("name")
			name, ok := nv.AsString()
			if !ok || name == "" {
				return nil, Errorf(KindParse, "interfaces: item %d has no name", i)
			}
			iface := model.Interface{Name: name}
			if dv, ok := it.Get("description"); ok {
				iface.Description, _ = dv.AsString()
			}
			if av, ok := it.Get("addresses"); ok && av.Kind() == value.KindArray {
				for _, a := range av.Items() {
					if s, ok := a.AsString(); ok {
						iface.Addresses = append(iface.Addresses, s)
					}
				}
			}
			out = append(out, iface)
		default:
			return nil, Errorf(KindParse, "interfaces: item %d is %s", i, it.Kind())
		}
	}
	return out, nil
}

// DecodeStrings reads a payload that is an array of strings.
func DecodeStrings(v value.Value) ([]string, *Error) {
	if v.Kind() != value.KindArray {
		return nil, Errorf(KindParse, "expected array of strings, got %s", v.Kind())
	}
	items := v.Items()
	out := make([]string, 0, len(items))
	for i, it := range items {
		s, ok := it.AsString()
		if !ok {
			return nil, Errorf(KindParse, "item %d is %s, not string", i, it.Kind())
		}
		out = append(out, s)
	}
	return out, nil
}

// DecodeResultSet reads a payload that is an array of row objects.
func DecodeResultSet(v value.Value) (model.ResultSet, *Error) {
	rs, err := model.ResultSetFrom(v)
	if err != nil {
		return nil, Errorf(KindParse, "%v", err)
	}
	return rs, nil
}

// DecodeAnalysis reads a run_analysis payload. The payload must be an
// object with a string "response". When that string is itself a JSON object
// carrying a string "response", as raw Ollama bodies do, the inner text is
// used; any other text, JSON or not, is the answer as-is.
func DecodeAnalysis(v value.Value) (model.Analysis, *Error) {
	if v.Kind() != value.KindObject {
		return model.Analysis{}, Errorf(KindParse, "analysis: expected object, got %s", v.Kind())
	}
	rv, ok := v.Get("response")
	if !ok {
		return model.Analysis{}, Errorf(KindParse, "analysis: missing response")
	}
	text, ok := rv.AsString()
	if !ok {
		return model.Analysis{}, Errorf(KindParse, "analysis: response is %s, not string", rv.Kind())
	}
	if inner, err := value.Parse([]byte(text)); err == nil && inner.Kind() == value.KindObject {
		if iv, ok := inner.Get("response"); ok {
			if s, ok := iv.AsString(); ok {
				text = s
			}
		}
	}

	a := model.Analysis{Response: text}
	if pv, ok := v.Get("provider"); ok {
		a.Provider, _ = pv.AsString()
	}
	if mv, ok := v.Get("model"); ok {
		a.Model, _ = mv.AsString()
	}
	if nv, ok := v.Get("rows"); ok {
		n, _ := nv.AsInt()
		a.Rows = int(n)
	}
	return a, nil
}

// EncodeInterfaces builds a list_interfaces payload.
func EncodeInterfaces(ifaces []model.Interface) value.Value {
	items := make([]value.Value, len(ifaces))
	for i, iface := range ifaces {
		items[i] = value.Object(
			value.F("name", value.String(iface.Name)),
			value.F("description", value.String(iface.Description)),
			value.F("addresses", value.Strings(iface.Addresses)),
		)
	}
	return value.Array(items...)
}
