package service

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewTicketCode returns a human readable ticket code of the form
// RNR-XXXX-YYYYYY.  XXXX is the tail of the base36 millisecond clock
// and YYYYYY is drawn from crypto/rand.  Codes are not guaranteed
// unique; the store's unique index on tickets.code is the final guard.
func NewTicketCode(now time.Time) (string, error) {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(ts) > 4 {
		ts = ts[len(ts)-4:]
	}
	var b strings.Builder
	b.Grow(15)
	b.WriteString("RNR-")
	b.WriteString(ts)
	b.WriteByte('-')
	radix := big.NewInt(int64(len(base36)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, radix)
		if err != nil {
			return "", err
		}
		b.WriteByte(base36[n.Int64()])
	}
	return b.String(), nil
}
