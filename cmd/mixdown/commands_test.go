package main

import "testing"

func TestParseJobID(t *testing.T) {
	if id, err := parseJobID("42"); err != nil || id != 42 {
		t.Fatalf("parseJobID(42) = %d, %v", id, err)
	}
	for _, raw := range []string{"0", "-3", "abc", "", "1.5"} {
		if _, err := parseJobID(raw); err == nil {
			t.Fatalf("parseJobID(%q) accepted", raw)
		}
	}
}

func TestParseJobIDs(t *testing.T) {
	ids, err := parseJobIDs([]string{"1", "2", "3"})
	if err != nil || len(ids) != 3 || ids[2] != 3 {
		t.Fatalf("parseJobIDs = %v, %v", ids, err)
	}
	if _, err := parseJobIDs([]string{"1", "oops"}); err == nil {
		t.Fatal("bad id in list accepted")
	}
}

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"pending": "Pending",
		"failed":  "Failed",
		"X":       "X",
	}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Fatalf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatal("yesNo mapping broken")
	}
}
