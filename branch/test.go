package branch

// testHistory mirrors the shape of real release data at the time stable
// was version 29.
const testHistory = `
channels:
  dev: 31
  beta: 30
  stable: 29
branches:
  31: "1650"
  30: "1599"
  29: "1547"
  28: "1500"
  27: "1453"
  26: "1410"
  25: "1364"
  24: "1312"
  23: "1271"
  22: "1229"
  21: "1180"
  20: "1132"
  19: "1084"
  18: "1025"
  17: "963"
  16: "912"
  15: "874"
  14: "835"
  13: "782"
  12: "742"
  11: "696"
  10: "648"
  9: "597"
  8: "552"
  7: "544"
  6: "495"
  5: "396"
`

// ForTest returns a Utility with canned release data.
func ForTest() *Utility {
	u, err := Parse([]byte(testHistory))
	if err != nil {
		panic(err)
	}
	return u
}
