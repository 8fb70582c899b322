package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/placescan/internal/resilience"
)

func testClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(
		WithBaseURL(srv.URL),
		WithUserAgent("placescan-test/1.0"),
		WithRateLimit(1000),
	)
}

func TestReverseGeocode_Success(t *testing.T) {
	var gotUA string
	var gotQuery map[string][]string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"address":{"country_code":"us","country":"United States","state":"California"}}`))
	})

	pm, err := c.ReverseGeocode(context.Background(), 36.7783, -119.4179)
	require.NoError(t, err)
	require.True(t, pm.Matched())
	assert.Equal(t, "US", pm.CountryCode)
	assert.Equal(t, "United States", pm.CountryName)
	assert.Equal(t, "California", pm.AdministrativeArea)

	assert.Equal(t, "placescan-test/1.0", gotUA)
	assert.Equal(t, []string{"36.778300"}, gotQuery["lat"])
	assert.Equal(t, []string{"-119.417900"}, gotQuery["lon"])
	assert.Equal(t, []string{"jsonv2"}, gotQuery["format"])
	assert.Equal(t, []string{"5"}, gotQuery["zoom"])
}

func TestReverseGeocode_ProvinceAndRegionFallback(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":{"country_code":"ca","country":"Canada","province":"Québec"}}`))
	})

	pm, err := c.ReverseGeocode(context.Background(), 46.8, -71.2)
	require.NoError(t, err)
	assert.Equal(t, "Québec", pm.AdministrativeArea)
}

func TestReverseGeocode_OceanPointIsNotAnError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	})

	pm, err := c.ReverseGeocode(context.Background(), 0, -160)
	require.NoError(t, err)
	assert.False(t, pm.Matched())
}

func TestReverseGeocode_MissingCountryCode(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":{"state":"Nowhere"}}`))
	})

	pm, err := c.ReverseGeocode(context.Background(), 10, 10)
	require.NoError(t, err)
	assert.False(t, pm.Matched())
}

func TestReverseGeocode_ServerErrorIsTransient(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ReverseGeocode(context.Background(), 10, 10)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestReverseGeocode_ClientErrorIsPermanent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.ReverseGeocode(context.Background(), 10, 10)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestReverseGeocode_MalformedResponse(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})

	_, err := c.ReverseGeocode(context.Background(), 10, 10)
	assert.Error(t, err)
}

func TestReverseGeocode_CancelledContext(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ReverseGeocode(ctx, 10, 10)
	assert.Error(t, err)
}

func TestPlacemarkMatched(t *testing.T) {
	assert.False(t, (*Placemark)(nil).Matched())
	assert.False(t, (&Placemark{}).Matched())
	assert.True(t, (&Placemark{CountryCode: "JP"}).Matched())
}
