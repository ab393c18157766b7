package format_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/format"
	"github.com/dmnkSabota/penterep-forensic-toolkit/internal/testutil"
)

func TestParseJPEG_Valid(t *testing.T) {
	data := testutil.JPEG(t, 32, 24)

	s, err := format.ParseJPEG(data)
	require.NoError(t, err)
	require.True(t, s.HasSOI)
	require.Equal(t, int64(0), s.SOIOffset)
	require.True(t, s.HasEOI)
	require.True(t, s.HasScan())
	require.Empty(t, s.Faults)
	require.False(t, s.TruncatedInSegment)
	require.Equal(t, int64(len(data)), s.StoppedAt)

	// stdlib encoder always emits the core table and frame segments
	require.NotNil(t, s.Segment(format.MarkerDQT))
	require.NotNil(t, s.Segment(format.MarkerDHT))
	require.NotNil(t, s.Segment(format.MarkerSOS))
}

func TestParseJPEG_MissingFooter(t *testing.T) {
	data := testutil.StripFooter(t, testutil.JPEG(t, 32, 24))

	s, err := format.ParseJPEG(data)
	require.NoError(t, err)
	require.True(t, s.HasSOI)
	require.False(t, s.HasEOI)
	require.True(t, s.HasScan())
	// The cut is in the entropy tail, not inside a declared segment.
	require.False(t, s.TruncatedInSegment)
	require.Equal(t, int64(len(data)), s.StoppedAt)
}

func TestParseJPEG_GarbagePrefix(t *testing.T) {
	data := testutil.PrependGarbage(testutil.JPEG(t, 16, 16), 37)

	s, err := format.ParseJPEG(data)
	require.NoError(t, err)
	require.True(t, s.HasSOI)
	require.Equal(t, int64(37), s.SOIOffset)
	require.True(t, s.HasEOI)
}

func TestParseJPEG_TruncatedMidSegment(t *testing.T) {
	full := testutil.JPEG(t, 32, 24)
	s, err := format.ParseJPEG(full)
	require.NoError(t, err)
	dqt := s.Segment(format.MarkerDQT)
	require.NotNil(t, dqt)

	// Cut the stream in the middle of the quantization table segment.
	cut := full[:dqt.Offset+dqt.Length/2]
	s2, err := format.ParseJPEG(cut)
	require.NoError(t, err)
	require.True(t, s2.HasSOI)
	require.False(t, s2.HasEOI)
	require.True(t, s2.TruncatedInSegment)
}

func TestParseJPEG_NoSignature(t *testing.T) {
	_, err := format.ParseJPEG([]byte("definitely not an image at all"))
	require.Error(t, err)
	require.ErrorIs(t, err, format.ErrNoSignature)

	var perr *format.ParseError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "jpeg", perr.Format)
}

func TestParseJPEG_TruncatedBelowSignature(t *testing.T) {
	_, err := format.ParseJPEG([]byte{0xFF})
	require.ErrorIs(t, err, format.ErrTruncated)
}

func TestParseJPEG_TrailingHalfMarker(t *testing.T) {
	data := testutil.StripFooter(t, testutil.JPEG(t, 16, 16))
	data = append(data, 0xFF)

	s, err := format.ParseJPEG(data)
	require.NoError(t, err)
	require.False(t, s.HasEOI)
}

func TestParseJPEG_Idempotent(t *testing.T) {
	data := testutil.StripFooter(t, testutil.JPEG(t, 24, 24))

	s1, err := format.ParseJPEG(data)
	require.NoError(t, err)
	s2, err := format.ParseJPEG(data)
	require.NoError(t, err)
	require.Equal(t, s1, s2)
}

func TestLastMarkerBoundary(t *testing.T) {
	data := testutil.JPEG(t, 16, 16)
	s, err := format.ParseJPEG(data)
	require.NoError(t, err)

	sos := s.Segment(format.MarkerSOS)
	require.NotNil(t, sos)
	// EOI is the last framed segment in a complete stream.
	require.Equal(t, int64(len(data)), s.LastMarkerBoundary())
}

func TestIsCriticalJPEGMarker(t *testing.T) {
	require.True(t, format.IsCriticalJPEGMarker(format.MarkerDQT))
	require.True(t, format.IsCriticalJPEGMarker(format.MarkerDHT))
	require.True(t, format.IsCriticalJPEGMarker(format.MarkerSOF0))
	require.True(t, format.IsCriticalJPEGMarker(format.MarkerSOS))
	require.False(t, format.IsCriticalJPEGMarker(format.MarkerAPP1))
	require.False(t, format.IsCriticalJPEGMarker(format.MarkerCOM))
}

func TestMarkerName(t *testing.T) {
	require.Equal(t, "SOI", format.MarkerName(format.MarkerSOI))
	require.Equal(t, "APP0", format.MarkerName(format.MarkerAPP0))
	require.Equal(t, "APP15", format.MarkerName(format.MarkerAPP15))
	require.Equal(t, "SOF2", format.MarkerName(format.MarkerSOF2))
	require.Equal(t, "RST3", format.MarkerName(0xD3))
}
