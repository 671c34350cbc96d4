package httpserver_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	server "hotel_rms/internal/adapters/http_server"
	redisad "hotel_rms/internal/adapters/redis"
	"hotel_rms/internal/app"
	"hotel_rms/internal/calendar"
	"hotel_rms/internal/domain"
	"hotel_rms/internal/resolver"
)

// ---- fakes ----

type fakeFetcher struct{ props map[string]domain.Property }

func (f *fakeFetcher) FetchProperty(ctx context.Context, id string) (domain.Property, error) {
	if p, ok := f.props[id]; ok {
		return p, nil
	}
	return domain.Property{}, fmt.Errorf("property %s: %w", id, domain.ErrNotFound)
}

func (f *fakeFetcher) ListMyProperties(ctx context.Context) ([]domain.Property, error) {
	return []domain.Property{f.props["p-1"]}, nil
}

type fakeCalendar struct {
	err   error
	calls int
	last  [3]int // year, month, unused
	mode  calendar.Mode
}

func (f *fakeCalendar) MonthGrid(ctx context.Context, propertyID string, year, month int, mode calendar.Mode) (app.MonthGrid, error) {
	f.calls++
	f.last = [3]int{year, month}
	f.mode = mode
	if f.err != nil {
		return app.MonthGrid{}, f.err
	}
	return app.MonthGrid{
		PropertyID: propertyID, Year: year, Month: month, Mode: mode,
		Weeks: calendar.Project(year, month, calendar.Series{}, mode),
	}, nil
}

func newTestServer(t *testing.T, cal *fakeCalendar) (*httptest.Server, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := redisad.New(mr.Addr(), "", 0)
	f := &fakeFetcher{props: map[string]domain.Property{
		"p-1": {ID: "p-1", Name: "Harbour Inn"},
		"p-2": {ID: "p-2", Name: "Alpine Lodge"},
	}}
	srv := server.New(0)
	srv.MountHandlers(&server.Handlers{
		Calendar: cal,
		Sessions: resolver.NewRegistry(f, store, 0),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, mr
}

func do(t *testing.T, method, url, session string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if session != "" {
		req.Header.Set(server.SessionHeader, session)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

type stateBody struct {
	Property  *domain.Property `json:"property"`
	IsLoading bool             `json:"is_loading"`
}

func decodeState(t *testing.T, res *http.Response) stateBody {
	t.Helper()
	var st stateBody
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	return st
}

// ---- tests ----

func TestSessionProperty_SelectReadClear(t *testing.T) {
	ts, mr := newTestServer(t, &fakeCalendar{})
	sid := uuid.NewString()

	res := do(t, http.MethodGet, ts.URL+"/v1/session/property", sid)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, sid, res.Header.Get(server.SessionHeader))
	assert.Nil(t, decodeState(t, res).Property)

	res = do(t, http.MethodPut, ts.URL+"/v1/session/property/p-2", sid)
	require.Equal(t, http.StatusOK, res.StatusCode)
	st := decodeState(t, res)
	require.NotNil(t, st.Property)
	assert.Equal(t, "p-2", st.Property.ID)

	stored, err := mr.Get("session:" + sid + ":selected_property_id")
	require.NoError(t, err)
	assert.Equal(t, `"p-2"`, stored)

	res = do(t, http.MethodGet, ts.URL+"/v1/session/property", sid)
	assert.Equal(t, "p-2", decodeState(t, res).Property.ID)

	res = do(t, http.MethodDelete, ts.URL+"/v1/session/property", sid)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.False(t, mr.Exists("session:"+sid+":selected_property_id"))
	assert.False(t, mr.Exists("session:"+sid+":selected_property"))
}

func TestSessionProperty_UnknownIDFallsBack(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCalendar{})

	res := do(t, http.MethodPut, ts.URL+"/v1/session/property/deleted-hotel", uuid.NewString())
	require.Equal(t, http.StatusOK, res.StatusCode)
	st := decodeState(t, res)
	require.NotNil(t, st.Property)
	assert.Equal(t, "p-1", st.Property.ID)
}

func TestSessionProperty_MintsSession(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCalendar{})

	res := do(t, http.MethodGet, ts.URL+"/v1/session/property", "not-a-uuid")
	_, err := uuid.Parse(res.Header.Get(server.SessionHeader))
	assert.NoError(t, err)
}

func TestCalendar_OK_ETag(t *testing.T) {
	cal := &fakeCalendar{}
	ts, _ := newTestServer(t, cal)

	res := do(t, http.MethodGet, ts.URL+"/v1/properties/p-1/calendar?year=2025&month=8&mode=msp", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, [3]int{2025, 8}, cal.last)
	assert.Equal(t, calendar.ModeMSP, cal.mode)

	var body struct {
		Weeks [][]*calendar.Cell `json:"weeks"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.NotEmpty(t, body.Weeks)
	assert.Nil(t, body.Weeks[0][0])
	assert.Equal(t, "No MSP", body.Weeks[0][1].Price)

	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/properties/p-1/calendar?year=2025&month=8&mode=msp", nil)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusNotModified, res2.StatusCode)
}

func TestCalendar_BadQuery(t *testing.T) {
	cal := &fakeCalendar{}
	ts, _ := newTestServer(t, cal)

	for _, q := range []string{"month=12", "month=-1", "year=abc", "mode=weekly"} {
		res := do(t, http.MethodGet, ts.URL+"/v1/properties/p-1/calendar?"+q, "")
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, q)
		assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))
	}
	assert.Zero(t, cal.calls)
}

func TestCalendar_UpstreamNotFound(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCalendar{err: fmt.Errorf("regular history: %w", domain.ErrNotFound)})

	res := do(t, http.MethodGet, ts.URL+"/v1/properties/p-9/calendar?year=2025&month=0", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCalendar_UpstreamFailure(t *testing.T) {
	ts, _ := newTestServer(t, &fakeCalendar{err: fmt.Errorf("remote 503")})

	res := do(t, http.MethodGet, ts.URL+"/v1/properties/p-1/calendar?year=2025&month=0", "")
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
}
