package apitest

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/escolas/school"
)

func fetchSchools(s *Server) (int, error) {
	req, err := http.NewRequest(http.MethodGet, s.URL+"/schools", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token("ana@example.com"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func getSchools(t *testing.T, s *Server) int {
	t.Helper()
	code, err := fetchSchools(s)
	require.NoError(t, err)
	return code
}

func TestSetSchoolsStatusRestores(t *testing.T) {
	s := New([]school.School{{ID: 1}})
	defer s.Close()

	s.SetSchoolsStatus(http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, getSchools(t, s))

	s.SetSchoolsStatus(0)
	assert.Equal(t, http.StatusOK, getSchools(t, s))
}

func TestOverridesWhileServing(t *testing.T) {
	s := New(nil)
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fetchSchools(s)
			assert.NoError(t, err)
		}()
		s.SetSchoolsBody("[]")
		s.SetSchoolsStatus(0)
		s.SetDelay(0)
	}
	wg.Wait()
	assert.EqualValues(t, 8, s.SchoolRequests())
}

func TestSchoolsRequiresToken(t *testing.T) {
	s := New(nil)
	defer s.Close()

	resp, err := http.Get(s.URL + "/schools")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
