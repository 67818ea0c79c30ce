package crawl

import "testing"

func TestExtractNumber(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"1Ambush.mov", 1, true},
		{"02Ambush.mov", 2, true},
		{"176hey.exe", 176, true},
		{"22ey17.exe", 22, true},
		{"eyslkvjsdlkj03k.exe", 3, true},
		{"1", 1, true},
		{"Ambush.mov", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ExtractNumber(c.in)
		if ok != c.wantOK || (ok && got != c.want) {
			t.Errorf("ExtractNumber(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}
