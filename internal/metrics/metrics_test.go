package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDkg(t *testing.T) {
	success := testutil.ToFloat64(DkgCeremoniesTotal.WithLabelValues(StatusSuccess))
	failure := testutil.ToFloat64(DkgCeremoniesTotal.WithLabelValues(StatusError))

	RecordDkg(time.Now(), nil)
	RecordDkg(time.Now(), errors.New("boom"))
	RecordDkg(time.Now(), nil)

	assert.Equal(t, success+2, testutil.ToFloat64(DkgCeremoniesTotal.WithLabelValues(StatusSuccess)))
	assert.Equal(t, failure+1, testutil.ToFloat64(DkgCeremoniesTotal.WithLabelValues(StatusError)))
}

func TestRecordSignerRequest(t *testing.T) {
	before := testutil.ToFloat64(SignerRequestsTotal.WithLabelValues("3", "SignRound1", StatusError))
	RecordSignerRequest("3", "SignRound1", errors.New("unreachable"))
	assert.Equal(t, before+1, testutil.ToFloat64(SignerRequestsTotal.WithLabelValues("3", "SignRound1", StatusError)))
}
