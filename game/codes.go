package game

import "crypto/rand"

const codeLength = 6

// Lobby codes are typed by hand on phones, so the alphabet is uppercase only.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode() string {
	const max = byte(255 - (256 % len(codeAlphabet)))

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
				if len(out) == codeLength {
					return string(out)
				}
			}
		}
	}
}

// newLobbyCode rolls codes until one passes the taken check. Six characters
// leave a real collision chance once a few lobbies are live, so the re-roll
// is not optional.
func newLobbyCode(taken func(string) bool) string {
	for {
		code := randomCode()
		if !taken(code) {
			return code
		}
	}
}
