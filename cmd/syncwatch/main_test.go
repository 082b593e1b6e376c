package main

import "testing"

func TestStreamURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":      "ws://localhost:8080/v1/ws",
		"https://api.example.com/":   "wss://api.example.com/v1/ws",
		"http://gateway/sync-engine": "ws://gateway/sync-engine/v1/ws",
	}
	for in, want := range cases {
		got, err := streamURL(in)
		if err != nil {
			t.Fatalf("streamURL(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("streamURL(%q) = %q, want %q", in, got, want)
		}
	}
}
