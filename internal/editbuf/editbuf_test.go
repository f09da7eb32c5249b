package editbuf

import "testing"

func TestReplaceMiddleRange(t *testing.T) {
	b := NewBuffer([]byte("hello world"))
	b.Replace(6, 11, "there")
	got, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(got) != "hello there" {
		t.Errorf("got %q", got)
	}
}

func TestInsertAtOffset(t *testing.T) {
	b := NewBuffer([]byte("ab"))
	b.Insert(1, "-X-")
	got, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(got) != "a-X-b" {
		t.Errorf("got %q", got)
	}
}

func TestMultipleNonOverlappingEditsApplyInOffsetOrder(t *testing.T) {
	b := NewBuffer([]byte("0123456789"))
	b.Replace(6, 8, "XX")
	b.Insert(2, "--")
	got, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(got) != "01--2345XX89" {
		t.Errorf("got %q", got)
	}
}

func TestInsertAndReplaceAtSameOffsetOrdersInsertFirst(t *testing.T) {
	b := NewBuffer([]byte("abcdef"))
	b.Replace(2, 4, "XY")
	b.Insert(2, "-")
	got, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(got) != "ab-XYef" {
		t.Errorf("got %q", got)
	}
}

func TestOverlappingEditsReportOverlapError(t *testing.T) {
	b := NewBuffer([]byte("0123456789"))
	b.Replace(0, 5, "X")
	b.Replace(3, 8, "Y")
	_, err := b.Bytes()
	if err == nil {
		t.Fatalf("expected an overlap error")
	}
	if _, ok := err.(*OverlapError); !ok {
		t.Fatalf("err = %T, want *OverlapError", err)
	}
}
