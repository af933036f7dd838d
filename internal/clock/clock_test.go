package clock

import "testing"

func TestNewRejectsDegenerateConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ticks per season", Config{TicksPerSeason: 0, Seasons: []string{"Spring"}}},
		{"empty seasons", Config{TicksPerSeason: 100, Seasons: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	c, err := New(Config{TicksPerSeason: 10, Seasons: []string{"Spring", "Summer"}, TicksPerDay: 4})
	if err != nil {
		t.Fatal(err)
	}
	prev := c.Tick()
	for i := 0; i < 50; i++ {
		next := c.Advance()
		if next != prev+1 {
			t.Fatalf("tick %d: expected %d, got %d", i, prev+1, next)
		}
		prev = next
	}
}

func TestSeasonCycles(t *testing.T) {
	c, err := New(Config{TicksPerSeason: 2, Seasons: []string{"Spring", "Summer", "Autumn"}})
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for i := 0; i < 6; i++ {
		got = append(got, c.Season())
		c.Advance()
	}
	want := []string{"Spring", "Spring", "Summer", "Summer", "Autumn", "Autumn"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tick %d: season = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTicksUntilSeasonChange(t *testing.T) {
	c, err := New(Config{TicksPerSeason: 5, Seasons: []string{"Spring", "Summer"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.TicksUntilSeasonChange(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	c.Advance()
	c.Advance()
	if got := c.TicksUntilSeasonChange(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestTimeOfDayPartitions(t *testing.T) {
	c, err := New(Config{TicksPerSeason: 1000, Seasons: []string{"Spring"}, TicksPerDay: 8})
	if err != nil {
		t.Fatal(err)
	}
	want := []TimeOfDay{Morning, Morning, Afternoon, Afternoon, Evening, Evening, Night, Night}
	for i, w := range want {
		if got := c.TimeOfDay(); got != w {
			t.Errorf("tick %d: TimeOfDay = %s, want %s", i, got, w)
		}
		c.Advance()
	}
}

func TestTimeOfDayDisabled(t *testing.T) {
	c, err := New(Config{TicksPerSeason: 100, Seasons: []string{"Spring"}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if got := c.TimeOfDay(); got != Morning {
			t.Fatalf("tick %d: expected Morning when day/night disabled, got %s", i, got)
		}
		c.Advance()
	}
}
