package relay

import "testing"

func TestTable_AddIsIdempotentPerOutput(t *testing.T) {
	tbl := NewTable()
	a := NewChanOutput("a", 4)
	b := NewChanOutput("b", 4)

	if !tbl.Add("/building_map", "building_map", a) {
		t.Fatal("first Add should register")
	}
	if tbl.Add("/building_map", "building_map", a) {
		t.Error("second Add for same output should be rejected")
	}
	if !tbl.Add("/building_map", "building_map", b) {
		t.Error("Add for a second output should register")
	}
	if n := tbl.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}

	sent, dropped := tbl.Deliver("/building_map", []byte(`{}`))
	if sent != 2 || dropped != 0 {
		t.Errorf("Deliver = %d sent, %d dropped; want 2, 0", sent, dropped)
	}

	empty := tbl.RemoveOutput(a)
	if len(empty) != 0 {
		t.Errorf("empty rooms = %v, want none", empty)
	}
	empty = tbl.RemoveOutput(b)
	if len(empty) != 1 || empty[0] != "/building_map" {
		t.Errorf("empty rooms = %v, want [/building_map]", empty)
	}
	if len(tbl.Rooms()) != 0 {
		t.Errorf("Rooms = %v, want none", tbl.Rooms())
	}
}

func TestChanOutput_DropsWhenFull(t *testing.T) {
	out := NewChanOutput("slow", 1)
	if !out.Send("a", nil) {
		t.Fatal("first send should fit")
	}
	if out.Send("b", nil) {
		t.Error("second send should be dropped")
	}
	<-out.C()
	if !out.Send("c", nil) {
		t.Error("send after drain should fit")
	}
}
