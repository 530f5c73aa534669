package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendNil(t *testing.T) {
	err := New("error")
	errs := Append(nil, err).Slice()
	require.Len(t, errs, 1)
	require.Equal(t, err, errs[0])

	errs = Append(errorSlice([]error{err}), nil).Slice()
	require.Len(t, errs, 1)
	require.Equal(t, err, errs[0])
}

func TestCombineNil(t *testing.T) {
	err := New("error")
	require.Equal(t, err, Combine(err, nil))
	require.Equal(t, err, Combine(nil, err))
	require.Nil(t, Combine(nil, nil))
}

func TestCombineBasic(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")

	errs := Combine(err0, err1).(Errors).Slice()
	require.Len(t, errs, 2)
	require.Equal(t, err0, errs[0])
	require.Equal(t, err1, errs[1])
}

func TestDefer(t *testing.T) {
	fail := func() (err error) {
		defer Defer(&err, func() error { return New("from defer") })
		return nil
	}
	require.EqualError(t, fail(), "from defer")
}

func TestWrapfNeverNil(t *testing.T) {
	require.EqualError(t, Wrapf(nil, "context %d", 1), "context 1")
	require.Error(t, Wrapf(New("inner"), "outer"))
	require.NoError(t, WrapfOrNil(nil, "outer"))
}
