package detector

import (
	"errors"
	"testing"
)

func TestParseHandedness(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Handedness
		wantErr bool
	}{
		{name: "left", in: "Left", want: Left},
		{name: "right lower case", in: "right", want: Right},
		{name: "padded", in: "  Right ", want: Right},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown", in: "both", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHandedness(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownHandedness) {
					t.Fatalf("ParseHandedness(%q) error = %v, want ErrUnknownHandedness", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHandedness(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseHandedness(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestFirst(t *testing.T) {
	if got := First(nil); got != nil {
		t.Errorf("First(nil) = %v, want nil", got)
	}

	hands := []HandLandmarks{RockLandmarks(Left), PaperLandmarks(Right)}
	got := First(hands)
	if got == nil {
		t.Fatal("First returned nil for non-empty input")
	}
	if got.Handedness != Left {
		t.Errorf("First handedness = %s, want Left", got.Handedness)
	}

	// The returned hand is a copy.
	got.Points[Wrist].X = 42
	if hands[0].Points[Wrist].X == 42 {
		t.Error("First should not alias the input slice")
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{RockLandmarks(Right), PaperLandmarks(Left)})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("Calls() = %d, want 1", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()

		if err := mock.Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected Closed() to be true")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestPoseLandmarks(t *testing.T) {
	fingers := []struct {
		name     string
		tip, pip int
	}{
		{"index", IndexTip, IndexPIP},
		{"middle", MiddleTip, MiddlePIP},
		{"ring", RingTip, RingPIP},
		{"pinky", PinkyTip, PinkyPIP},
	}

	for _, side := range []Handedness{Left, Right} {
		t.Run(string(side)+" paper fingers point up", func(t *testing.T) {
			lm := PaperLandmarks(side)
			if lm.Handedness != side {
				t.Errorf("handedness = %s, want %s", lm.Handedness, side)
			}
			for _, f := range fingers {
				if lm.Points[f.tip].Y >= lm.Points[f.pip].Y {
					t.Errorf("%s tip should be above its PIP joint", f.name)
				}
			}
		})

		t.Run(string(side)+" rock fingers fold down", func(t *testing.T) {
			lm := RockLandmarks(side)
			for _, f := range fingers {
				if lm.Points[f.tip].Y <= lm.Points[f.pip].Y {
					t.Errorf("%s tip should be below its PIP joint", f.name)
				}
			}
		})
	}

	t.Run("thumb splays outward per hand", func(t *testing.T) {
		right := PaperLandmarks(Right)
		if right.Points[ThumbTip].X >= right.Points[ThumbMCP].X {
			t.Error("right thumb tip should be left of its MCP joint")
		}

		left := PaperLandmarks(Left)
		if left.Points[ThumbTip].X <= left.Points[ThumbMCP].X {
			t.Error("left thumb tip should be right of its MCP joint")
		}
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("empty hands", func(t *testing.T) {
		hands, err := decodeResponse([]byte(`{"hands": []}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected no hands, got %d", len(hands))
		}
	})

	t.Run("full hand", func(t *testing.T) {
		line := `{"hands": [{"handedness": "Left", "score": 0.9, "points": [`
		for i := 0; i < NumLandmarks; i++ {
			if i > 0 {
				line += ","
			}
			line += `{"x": 0.5, "y": 0.25, "z": 0}`
		}
		line += `]}]}`

		hands, err := decodeResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if hands[0].Handedness != Left {
			t.Errorf("handedness = %s, want Left", hands[0].Handedness)
		}
		if hands[0].Points[PinkyTip].Y != 0.25 {
			t.Errorf("pinky tip y = %f, want 0.25", hands[0].Points[PinkyTip].Y)
		}
	})

	t.Run("short hand is dropped", func(t *testing.T) {
		hands, err := decodeResponse([]byte(`{"hands": [{"handedness": "Right", "points": [{"x": 1, "y": 1, "z": 0}]}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 0 {
			t.Errorf("expected short hand to be dropped, got %d", len(hands))
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := decodeResponse([]byte("not json")); err == nil {
			t.Error("expected parse error")
		}
	})
}
