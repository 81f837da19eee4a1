package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RodrigoOjedaCcoyo/App-Viajes-Cusco-Peru-sub000/internal/shared"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: itinerary 4", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: amount", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: sales: timeout", shared.ErrBackendUnavailable), http.StatusServiceUnavailable},
		{shared.ErrDuplicate, http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		require.Equal(t, tc.want, rr.Code, tc.err.Error())
		require.Equal(t, tc.want, StatusFor(tc.err))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.Equal(t, tc.want, body.Status)
	}
}
