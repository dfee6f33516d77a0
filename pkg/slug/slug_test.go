package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Form Setting", "form-setting"},
		{"form-setting", "form-setting"},
		{"  Purchase   Order  ", "purchase-order"},
		{"Sales & Distribution", "sales-distribution"},
		{"ALLCAPS", "allcaps"},
		{"item_name", "item-name"},
		{"a", "a"},
		{"", ""},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := Make(tc.in); got != tc.want {
			t.Errorf("Make(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMakeIdempotent(t *testing.T) {
	inputs := []string{"Form Setting", "Purchase Order", "tic/25-26", "Already-Slugged", "  spaced  out  "}
	for _, in := range inputs {
		once := Make(in)
		if twice := Make(once); twice != once {
			t.Errorf("Make not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestMakeCollapsesCaseAndSpaceVariants(t *testing.T) {
	variants := []string{"Form Setting", "form setting", "FORM  SETTING", "form-setting"}
	want := Make(variants[0])
	for _, v := range variants {
		if got := Make(v); got != want {
			t.Errorf("Make(%q) = %q, want %q", v, got, want)
		}
	}
	// Genuinely different labels must not collapse.
	if Make("form setting") == Make("form settings") {
		t.Error("distinct labels collapsed to the same slug")
	}
}

func TestUnmake(t *testing.T) {
	if got := Unmake("purchase-order"); got != "Purchase Order" {
		t.Errorf("Unmake = %q, want %q", got, "Purchase Order")
	}
}
