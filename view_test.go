package propstore

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func claimNS(t *testing.T, s *Store, ns string) *View {
	t.Helper()
	v, err := s.Claim(ns)
	require.NoError(t, err)
	return v
}

func TestView_TypedRoundTrip(t *testing.T) {
	v := claimNS(t, New(), "NS1")

	require.NoError(t, v.SetInt("INT", 132))
	require.NoError(t, v.SetBool("TRUEBOOL", true))
	require.NoError(t, v.SetBool("FALSEBOOL", false))
	require.NoError(t, v.SetInt("INT", 1322))
	require.NoError(t, v.SetInt64("LONGISH", 123))
	require.NoError(t, v.SetFloat64("DOUBLE", 2.5))
	require.NoError(t, v.SetString("STRING", "hey"))

	assert.Equal(t, 1322, v.GetInt("INT", -1))
	assert.Equal(t, int64(123), v.GetInt64("LONGISH", -1))
	assert.Equal(t, 2.5, v.GetFloat64("DOUBLE", -1))
	assert.True(t, v.GetBool("TRUEBOOL", false))
	assert.False(t, v.GetBool("FALSEBOOL", true))
	assert.Equal(t, "hey", v.GetString("STRING", ""))
	assert.Equal(t, []string{"DOUBLE", "FALSEBOOL", "INT", "LONGISH", "STRING", "TRUEBOOL"}, v.Keys())
}

func TestView_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v, err := New().Claim("NS")
		if err != nil {
			t.Fatal(err)
		}
		key := rapid.StringMatching(`[A-Za-z][A-Za-z0-9_]{0,15}`).Draw(t, "key")

		i := rapid.IntRange(math.MinInt32, math.MaxInt32).Draw(t, "int")
		_ = v.SetInt(key, i)
		if got := v.GetInt(key, 0); got != i {
			t.Fatalf("GetInt = %d, want %d", got, i)
		}

		l := rapid.Int64().Draw(t, "int64")
		_ = v.SetInt64(key, l)
		if got := v.GetInt64(key, 0); got != l {
			t.Fatalf("GetInt64 = %d, want %d", got, l)
		}

		f := rapid.Float64Range(-1e300, 1e300).Draw(t, "float64")
		_ = v.SetFloat64(key, f)
		if got := v.GetFloat64(key, 0); got != f {
			t.Fatalf("GetFloat64 = %v, want %v", got, f)
		}

		b := rapid.Bool().Draw(t, "bool")
		_ = v.SetBool(key, b)
		if got := v.GetBool(key, !b); got != b {
			t.Fatalf("GetBool = %v, want %v", got, b)
		}

		s := rapid.String().Draw(t, "string")
		_ = v.SetString(key, s)
		if got := v.GetString(key, s+"x"); got != s {
			t.Fatalf("GetString = %q, want %q", got, s)
		}
	})
}

func TestView_SetIntOutOfRange(t *testing.T) {
	v := claimNS(t, New(), "NS1")
	require.NoError(t, v.SetInt("INT", 7))

	limit := int64(math.MaxInt32)
	wide := int(limit + 1)
	if wide == math.MinInt32 {
		t.Skip("int is 32 bits on this platform")
	}
	err := v.SetInt("INT", wide)
	require.ErrorIs(t, err, ErrValueOutOfRange)
	assert.Equal(t, 7, v.GetInt("INT", -1))

	require.NoError(t, v.SetInt64("INT", int64(wide)))
	assert.Equal(t, -1, v.GetInt("INT", -1))
	assert.Equal(t, int64(wide), v.GetInt64("INT", -1))
}

func TestView_DefaultFallback(t *testing.T) {
	v := claimNS(t, New(), "NS1")

	assert.Equal(t, -1, v.GetInt("missing", -1))
	assert.False(t, v.HasKey("missing"))
	assert.True(t, v.GetBool("TRUXBOOL", true))
	assert.False(t, v.GetBool("TRUXBOOL", false))
	assert.Equal(t, "dflt", v.GetString("missing", "dflt"))
}

func TestView_TypeMismatchFallsBack(t *testing.T) {
	v := claimNS(t, New(), "NS1")
	require.NoError(t, v.SetBool("FLAG", true))
	require.NoError(t, v.SetString("STRING", "hey"))
	require.NoError(t, v.SetFloat64("RATIO", 0.5))

	assert.Equal(t, -7, v.GetInt("FLAG", -7))
	assert.Equal(t, int64(-7), v.GetInt64("STRING", -7))
	assert.Equal(t, -7, v.GetInt("RATIO", -7))
	assert.True(t, v.GetBool("STRING", true))
	assert.Equal(t, -7.0, v.GetFloat64("FLAG", -7))

	// Any stored text is a valid string.
	assert.Equal(t, "true", v.GetString("FLAG", ""))
}

func TestView_RemovedKeyFallsBack(t *testing.T) {
	v := claimNS(t, New(), "NS1")
	require.NoError(t, v.SetInt("INT", 1322))
	assert.True(t, v.Remove("INT"))
	assert.Equal(t, -1, v.GetInt("INT", -1))
	assert.False(t, v.Remove("INT"))
}

func TestView_EmptyKeyIsSilentNoOp(t *testing.T) {
	v := claimNS(t, New(), "NS1")
	v.AddToDictionary("ONLY")

	// Ignored even though a dictionary is active.
	assert.NoError(t, v.SetInt("", 5))
	assert.NoError(t, Set(v, "", "x"))
	assert.Empty(t, v.Keys())
	assert.Equal(t, 0, v.Bucket().Len())

	assert.Equal(t, 9, v.GetInt("", 9))
	assert.False(t, v.HasKey(""))
	assert.False(t, v.Remove(""))
}

func TestView_DictionaryViolation(t *testing.T) {
	v := claimNS(t, New(), "NS1")
	require.NoError(t, v.SetInt("INT", 1))
	v.AddToDictionary("SUPERKEY")

	err := v.SetString("notindictionary", "12")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyRejected))
	assert.Equal(t, []string{"INT"}, v.Keys())

	v.SetDictionary(nil)
	require.NoError(t, v.SetString("notindictionary", "12"))
}

func TestView_DeriveSharesBucketButNotKeys(t *testing.T) {
	pt := claimNS(t, New(), "NS1")
	require.NoError(t, pt.SetInt("INT", 132))

	pt2, err := pt.Derive("NS2")
	require.NoError(t, err)
	require.NoError(t, pt2.SetInt("eep", 1000))
	require.NoError(t, pt2.SetInt("kaboom", 12))

	assert.Same(t, pt.Bucket(), pt2.Bucket())
	assert.Equal(t, 132, pt.GetInt("INT", -1))
	assert.Equal(t, []string{"INT"}, pt.Keys())

	assert.Equal(t, -1, pt2.GetInt("INT", -1))
	assert.Equal(t, 1000, pt2.GetInt("eep", -1))
	assert.Equal(t, -1, pt2.GetInt("whee", -1))
	assert.Equal(t, []string{"eep", "kaboom"}, pt2.Keys())

	// The dictionary belongs to the shared bucket.
	pt.AddToDictionary("eep")
	assert.ErrorIs(t, pt2.SetInt("kaboom", 13), ErrKeyRejected)
	assert.NoError(t, pt2.SetInt("eep", 1001))

	_, err = pt.Derive("bad:ns")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}

func TestView_Format(t *testing.T) {
	v := claimNS(t, New(), "NS2")
	assert.Equal(t, "", v.Format(", "))

	require.NoError(t, v.SetInt("kaboom", 12))
	require.NoError(t, v.SetInt("eep", 1000))

	assert.Equal(t, "eep=1000, kaboom=12", v.Format(", "))
	assert.Equal(t, "eep=1000\nkaboom=12", v.Format("\n"))
	assert.Equal(t, "NS2{eep=1000, kaboom=12}", v.String())
}

func TestView_EntriesIsACopy(t *testing.T) {
	v := claimNS(t, New(), "NS1")
	assert.NotNil(t, v.Entries())

	require.NoError(t, v.SetInt("a", 1))
	e := v.Entries()
	e["b"] = "2"
	assert.False(t, v.HasKey("b"))
	assert.Equal(t, map[string]string{"a": "1"}, v.Entries())
}

func TestSplitKey(t *testing.T) {
	ns, key, err := SplitKey("NS1:INT")
	require.NoError(t, err)
	assert.Equal(t, "NS1", ns)
	assert.Equal(t, "INT", key)

	ns, key, err = SplitKey("NS1:a:b")
	require.NoError(t, err)
	assert.Equal(t, "NS1", ns)
	assert.Equal(t, "a:b", key)

	for _, bad := range []string{"", "nokey", ":INT", "NS1:"} {
		_, _, err := SplitKey(bad)
		assert.ErrorIs(t, err, ErrMalformedEntry, bad)
	}
	assert.Equal(t, "NS1:INT", QualifiedKey("NS1", "INT"))
}
