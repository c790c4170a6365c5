package mode

import "testing"

func TestIsValid(t *testing.T) {
	for _, m := range All() {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", "semantic", "keyword", "DENSE"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Sparse, false},
		{"dense", Dense, false},
		{"Sparse", Sparse, false},
		{" hybrid ", Hybrid, false},
		{"bm25", "", true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in, Sparse)
		if (err != nil) != tc.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNeeds(t *testing.T) {
	if !Dense.NeedsDense() || Dense.NeedsSparse() {
		t.Error("dense mode needs only dense encoding")
	}
	if Sparse.NeedsDense() || !Sparse.NeedsSparse() {
		t.Error("sparse mode needs only sparse encoding")
	}
	if !Hybrid.NeedsDense() || !Hybrid.NeedsSparse() {
		t.Error("hybrid mode needs both encodings")
	}
}
