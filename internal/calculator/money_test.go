package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1"},
		{"-1.005", "-1.01"},
		{"2.675", "2.68"},
		{"33333.335", "33333.34"},
		{"100000", "100000"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RoundMoney(d(tt.in)); !got.Equal(d(tt.want)) {
				t.Errorf("RoundMoney(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestEvenAllocation(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{"three way 100000", "100000", 3, []string{"33333.33", "33333.33", "33333.34"}},
		{"two way exact", "90", 2, []string{"45", "45"}},
		{"single participant", "12.34", 1, []string{"12.34"}},
		{"rounding up never overshoots", "0.05", 10, []string{"0.01", "0.01", "0.01", "0.01", "0.01", "0", "0", "0", "0", "0"}},
		{"zero total", "0", 3, []string{"0", "0", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvenAllocation(d(tt.total), tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d amounts, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].Equal(d(tt.want[i])) {
					t.Errorf("amount[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
			if sum := Sum(got...); !sum.Equal(d(tt.total)) {
				t.Errorf("sum = %s, want %s", sum, tt.total)
			}
		})
	}

	if got := EvenAllocation(d("10"), 0); got != nil {
		t.Errorf("EvenAllocation(n=0) = %v, want nil", got)
	}
}

func TestPercentageShare(t *testing.T) {
	if got := PercentageShare(d("90000"), d("60")); !got.Equal(d("54000")) {
		t.Errorf("60%% of 90000 = %s, want 54000", got)
	}
	if got := PercentageShare(d("100"), d("33.335")); !got.Equal(d("33.34")) {
		t.Errorf("33.335%% of 100 = %s, want 33.34", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		amount, outstanding, want string
	}{
		{"10", "20", "10"},
		{"30", "20", "20"},
		{"-1", "20", "0"},
		{"5", "-3", "0"},
		{"5", "0", "0"},
	}
	for _, tt := range tests {
		if got := Clamp(d(tt.amount), d(tt.outstanding)); !got.Equal(d(tt.want)) {
			t.Errorf("Clamp(%s, %s) = %s, want %s", tt.amount, tt.outstanding, got, tt.want)
		}
	}
}
