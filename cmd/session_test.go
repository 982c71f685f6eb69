package cmd

import "testing"

func TestParseRoomInput(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "sleepy-otter-comet", want: "sleepy-otter-comet"},
		{in: "https://warpcast.qzz.io/r/sleepy-otter-comet", want: "sleepy-otter-comet"},
		{in: "http://localhost:8080/r/amber-otter/", want: "amber-otter"},
		{in: "warpcast.qzz.io/r/amber-otter", want: "amber-otter"},
		{in: "https://warpcast.qzz.io/watch", wantErr: true},
		{in: "bad:room", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseRoomInput(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseRoomInput(%q)=%q, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("parseRoomInput(%q)=%q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}
