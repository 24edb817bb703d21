package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"containment after normalization", "SolidStateBattery", "solid state battery!!", true},
		{"unrelated headlines", "Battery breakthrough in China", "Unrelated topic about software", false},
		{"empty right", "Battery breakthrough", "", false},
		{"empty left", "", "Battery breakthrough", false},
		{"punctuation only", "!!!", "???", false},
		{"single characters differ", "a", "b", false},
		{"reworded headline", "Toyota unveils solid-state battery plan", "Toyota unveils solid state battery plans for 2027", true},
		{"same brand different story", "Samsung SDI opens new plant", "QuantumScape ships B-samples to VW", false},
		{"cyrillic titles", "Toyota представила твердотельную батарею", "Toyota представила твердотельную батарею!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSimilar(tt.a, tt.b))
		})
	}
}

func TestIsSimilar_Reflexive(t *testing.T) {
	for _, s := range []string{"ab", "Solid-state battery", "QS-0 cell", "1234"} {
		assert.True(t, IsSimilar(s, s), "expected %q to be similar to itself", s)
	}
}

func TestIsSimilar_EmptyNeverMatches(t *testing.T) {
	for _, s := range []string{"", "a", "battery", "X battery breakthrough"} {
		assert.False(t, IsSimilar(s, ""))
		assert.False(t, IsSimilar("", s))
	}
}

func TestDice(t *testing.T) {
	assert.InDelta(t, 1.0, Dice("night", "NIGHT"), 1e-9)
	assert.InDelta(t, 0.25, Dice("night", "nacht"), 1e-9)
	assert.Equal(t, 0.0, Dice("a", "b"))
	assert.Equal(t, 0.0, Dice("", ""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "xbatterybreakthrough", Normalize("X Battery Breakthrough!!"))
	assert.Equal(t, "qs0", Normalize(" QS-0 "))
}

func TestNormalize_KeepsNonASCIILetters(t *testing.T) {
	assert.Equal(t, "твердотельнаябатарея2027", Normalize("Твердотельная батарея, 2027!"))
	assert.Equal(t, "solidstate", Normalize("Solid-State ©"))
}

func TestIsSimilar_CyrillicRewording(t *testing.T) {
	a := "Toyota начнет выпуск твердотельных батарей в 2027 году"
	b := "Toyota начнёт выпуск твердотельных батарей в 2027"

	assert.Greater(t, Dice(a, b), Threshold)
	assert.True(t, IsSimilar(a, b))
	assert.False(t, IsSimilar("Твердотельные батареи Samsung", "QuantumScape отгрузила образцы"))
}
