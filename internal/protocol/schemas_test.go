package protocol_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		c := jsonschema.NewCompiler()
		// Schemas reference each other by their https $id; register the
		// local files under those URLs so refs resolve without a loader.
		entries, err := os.ReadDir(filepath.Join("..", "..", "schemas"))
		if err != nil {
			t.Fatalf("read schemas dir: %v", err)
		}
		for _, e := range entries {
			f, err := os.Open(filepath.Join("..", "..", "schemas", e.Name()))
			if err != nil {
				t.Fatalf("open %s: %v", e.Name(), err)
			}
			if err := c.AddResource("https://aivis-q.dev/schemas/"+e.Name(), f); err != nil {
				f.Close()
				t.Fatalf("add resource %s: %v", e.Name(), err)
			}
			f.Close()
		}
		s, err := c.Compile("https://aivis-q.dev/schemas/" + name)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	pointerSchema := compile("pointer.schema.json")
	maskSchema := compile("mask.schema.json")
	stateSchema := compile("state.schema.json")
	ackSchema := compile("ack.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"niivue-web",
	  "study_id":"ST-20260101-0001"
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S1",
	  "study_id":"ST-20260101-0001",
	  "dims":[512,512,96],
	  "spacing_mm":[0.7,0.7,3.0],
	  "labels":[
	    {"id":1,"name":"Liver","color":"#ff4444"},
	    {"id":2,"name":"Spleen","color":"#44ff44"}
	  ],
	  "settings":{
	    "label":1,"tool":"PAINT","radius":3,"max_radius":64,
	    "orientation":"AXIAL","view":"EDITED","brightness":50,"contrast":50
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var pointer any
	_ = json.Unmarshal([]byte(`{
	  "type":"POINTER",
	  "protocol_version":"1.0",
	  "phase":"MOVE",
	  "voxel":[255,301,48],
	  "seq":17
	}`), &pointer)
	validate(pointerSchema, pointer)

	var maskMsg any
	_ = json.Unmarshal([]byte(`{
	  "type":"MASK",
	  "protocol_version":"1.0",
	  "revision":3,
	  "encoding":"RLE",
	  "data":"AAEC"
	}`), &maskMsg)
	validate(maskSchema, maskMsg)

	var state any
	_ = json.Unmarshal([]byte(`{
	  "type":"STATE",
	  "protocol_version":"1.0",
	  "settings":{
	    "label":2,"tool":"ERASE","radius":1,"max_radius":64,
	    "orientation":"CORONAL","view":"ORIGINAL","brightness":60,"contrast":40
	  },
	  "undo_depth":4,
	  "stroke_active":false,
	  "focus":{
	    "voxel":[255,301,48],
	    "axial_slice":48,
	    "coronal_slice":301,
	    "sagittal_slice":255,
	    "fractions":[0.499,0.589,0.505]
	  }
	}`), &state)
	validate(stateSchema, state)

	var ack any
	_ = json.Unmarshal([]byte(`{
	  "type":"ACK",
	  "protocol_version":"1.0",
	  "ack_for":"SAVE",
	  "accepted":false,
	  "code":"E_NO_VOLUME",
	  "message":"no volume loaded"
	}`), &ack)
	validate(ackSchema, ack)
}

func TestSchemas_RejectBadPhase(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "pointer.schema.json")
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var bad any
	_ = json.Unmarshal([]byte(`{
	  "type":"POINTER",
	  "protocol_version":"1.0",
	  "phase":"HOVER",
	  "voxel":[0,0,0]
	}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("expected HOVER phase rejected")
	}
}
