package main

import (
	"testing"
	"time"

	"leasemail/services/drafter/internal/app"
)

func TestWriteTimeoutOutlastsGeneration(t *testing.T) {
	cases := map[time.Duration]time.Duration{
		0:                app.DefaultTimeout + writeMargin,
		45 * time.Second: 75 * time.Second,
		5 * time.Minute:  5*time.Minute + writeMargin,
	}
	for generation, want := range cases {
		got := writeTimeout(generation)
		if got != want {
			t.Fatalf("writeTimeout(%v) = %v, want %v", generation, got, want)
		}
		if generation > 0 && got <= generation {
			t.Fatalf("writeTimeout(%v) = %v does not outlast generation", generation, got)
		}
	}
}
