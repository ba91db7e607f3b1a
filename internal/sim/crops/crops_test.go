package crops

import (
	"encoding/json"
	"testing"
)

func TestType_JSONNameAndIndex(t *testing.T) {
	var got []Type
	if err := json.Unmarshal([]byte(`["carrot", 5, "Corn"]`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 3 || got[0] != Carrot || got[1] != Potato || got[2] != Corn {
		t.Fatalf("got %v", got)
	}
	b, err := json.Marshal(Mushroom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"Mushroom"` {
		t.Fatalf("marshal=%s", b)
	}
}

func TestType_Rejects(t *testing.T) {
	var c Type
	if err := json.Unmarshal([]byte(`7`), &c); err == nil {
		t.Fatalf("expected out of range index rejected")
	}
	if err := json.Unmarshal([]byte(`"Tomato"`), &c); err == nil {
		t.Fatalf("expected unknown name rejected")
	}
	if Type(9).Valid() {
		t.Fatalf("Type(9) should be invalid")
	}
}
