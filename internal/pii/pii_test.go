package pii

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan_Personnummer(t *testing.T) {
	// The telefon pattern also matches the "0101-1234" tail of the number,
	// so the personnummer hit comes first and a telefon hit follows it.
	flags := Scan("mitt personnummer är 19900101-1234 tack")
	assert.Len(t, flags, 2)
	assert.Equal(t, "personnummer", flags[0].Type)
	assert.Equal(t, "19900101-1234", flags[0].Text)
	assert.Equal(t, "telefon", flags[1].Type)
}

func TestScan_Email(t *testing.T) {
	flags := Scan("kontakta mig på anna.svensson@example.com idag")
	assert.Len(t, flags, 1)
	assert.Equal(t, "email", flags[0].Type)
}

func TestScan_Telefon(t *testing.T) {
	flags := Scan("ring mig på 070-123 45 67")
	assert.Len(t, flags, 1)
	assert.Equal(t, "telefon", flags[0].Type)
}

func TestScan_Profanity_CaseInsensitive(t *testing.T) {
	flags := Scan("det var FAN så dåligt")
	assert.Len(t, flags, 1)
	assert.Equal(t, "profanity", flags[0].Type)
}

func TestScan_NoMatches(t *testing.T) {
	flags := Scan("hej och välkommen till mötet")
	assert.Empty(t, flags)
}

func TestScan_OrderIsPatternFamilyThenOccurrence(t *testing.T) {
	flags := Scan("19900101-1234 skriv till test@example.com, jävla strul")
	assert := assert.New(t)
	assert.Len(flags, 4)
	assert.Equal("personnummer", flags[0].Type)
	assert.Equal("email", flags[1].Type)
	assert.Equal("telefon", flags[2].Type) // "0101-1234" inside the personnummer
	assert.Equal("profanity", flags[3].Type)
}

func TestHasPII(t *testing.T) {
	assert.True(t, HasPII("nå mig på 070-123 45 67"))
	assert.False(t, HasPII("helt vanlig mening"))
}
