package risk

import "testing"

func TestConditionLabel(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{0, "Sunny/Clear"},
		{1, "Sunny/Clear"},
		{2, "Sunny/Clear"},
		{3, "Cloudy"},
		{51, "Rain"},
		{53, "Rain"},
		{55, "Rain"},
		{61, "Rain"},
		{63, "Rain"},
		{65, "Rain"},
		{95, "Storm"},
		{96, "Storm"},
		{99, "Storm"},
		{45, "Clear"},  // fog is unmapped
		{80, "Clear"},  // showers are unmapped
		{999, "Storm"}, // anything at or above 95 is a storm
		{-1, "Clear"},
	}

	for _, tc := range cases {
		if got := ConditionLabel(tc.code); got != tc.want {
			t.Errorf("ConditionLabel(%d): expected %q, got %q", tc.code, tc.want, got)
		}
	}
}

func TestStatusForProbability(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{0, "Safe"},
		{40.0, "Safe"}, // boundary is exclusive
		{40.01, "Caution"},
		{80.0, "Caution"}, // boundary is exclusive
		{80.01, "Danger"},
		{100, "Danger"},
	}

	for _, tc := range cases {
		if got := StatusForProbability(tc.p); got != tc.want {
			t.Errorf("StatusForProbability(%v): expected %q, got %q", tc.p, tc.want, got)
		}
	}
}

func TestRecommendedSpeed(t *testing.T) {
	cases := []struct {
		p    float64
		want int
	}{
		{0, 80},
		{14.9, 80},
		{15, 75}, // lower bounds are inclusive
		{39.9, 75},
		{40, 65},
		{69.9, 65},
		{70, 50},
		{100, 50},
	}

	for _, tc := range cases {
		if got := RecommendedSpeed(tc.p); got != tc.want {
			t.Errorf("RecommendedSpeed(%v): expected %d, got %d", tc.p, tc.want, got)
		}
	}
}
