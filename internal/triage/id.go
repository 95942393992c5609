package triage

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const ticketIDPrefix = "TKT-"

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTicketID returns a ticket id of the form TKT-XXXXXX with a random
// upper-cased base-36 suffix. Collisions are accepted as negligible and
// not checked against the ticket collection.
func NewTicketID() string {
	var b strings.Builder
	b.WriteString(ticketIDPrefix)
	max := big.NewInt(int64(len(base36)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms
			b.WriteByte('0')
			continue
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String()
}
