package stv

import "testing"

func TestDroopQuotaDefiningInequality(t *testing.T) {
	for seats := 1; seats <= 12; seats++ {
		for n := 0; n <= 250; n++ {
			q := DroopQuota(seats, n)
			if q*(seats+1) <= n {
				t.Fatalf("seats=%d n=%d: quota %d lets %d candidates reach it", seats, n, q, seats+1)
			}
			if (q-1)*(seats+1) > n {
				t.Fatalf("seats=%d n=%d: quota %d is not minimal", seats, n, q)
			}
			if q*(seats+1) < n-seats {
				t.Fatalf("seats=%d n=%d: quota %d below bound", seats, n, q)
			}
		}
	}
}

func TestDroopQuotaKnownValues(t *testing.T) {
	cases := []struct {
		seats, ballots, want int
	}{
		{seats: 3, ballots: 12, want: 4},
		{seats: 2, ballots: 12, want: 5},
		{seats: 3, ballots: 101, want: 26},
		{seats: 3, ballots: 6, want: 2},
		{seats: 1, ballots: 0, want: 1},
	}
	for _, tc := range cases {
		if got := DroopQuota(tc.seats, tc.ballots); got != tc.want {
			t.Fatalf("DroopQuota(%d, %d) = %d, want %d", tc.seats, tc.ballots, got, tc.want)
		}
	}
}

func TestHareQuota(t *testing.T) {
	for seats := 1; seats <= 12; seats++ {
		for n := 0; n <= 250; n++ {
			q := HareQuota(seats, n)
			if q*seats > n || (q+1)*seats <= n {
				t.Fatalf("seats=%d n=%d: hare quota %d is not floor(n/seats)", seats, n, q)
			}
		}
	}
}

func TestQuotaPanicsWithoutSeats(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero seats")
		}
	}()
	DroopQuota(0, 10)
}
