package checks

import (
	"fmt"
	"net/http"
	"time"

	"github.com/opinionlab/studyctl/pkg/rest/request"
	"github.com/opinionlab/studyctl/pkg/rest/request/client"
)

// HTTPChecker considers the platform up when its base url answers with
// anything other than 503.
type HTTPChecker struct {
	url    string
	client client.HTTPClient
}

func NewHTTPChecker(url string, timeout time.Duration) (Checker, error) {
	c, err := client.NewClient(timeout)
	if err != nil {
		return nil, err
	}
	return &HTTPChecker{url: url, client: c}, nil
}

func (hc *HTTPChecker) Check() error {
	req, err := request.NewBuilder(hc.url).Build()
	if err != nil {
		return err
	}

	resp, err := hc.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable { // service is physically up, but unable to respond
		return fmt.Errorf("server responded with statuscode: %d", resp.StatusCode)
	}
	return nil
}
