package main

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

func newClient(base string) *resty.Client {
	return resty.New().
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
}

func checkResponse(resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

func doGet(base, path string, query map[string]string) ([]byte, error) {
	req := newClient(base).R()
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	return checkResponse(req.Get(path))
}

func doPostJSON(base, path string, payload interface{}) ([]byte, error) {
	return checkResponse(newClient(base).R().SetBody(payload).Post(path))
}

func doPutJSON(base, path string, payload interface{}) ([]byte, error) {
	return checkResponse(newClient(base).R().SetBody(payload).Put(path))
}

func doPatchJSON(base, path string, payload interface{}) ([]byte, error) {
	return checkResponse(newClient(base).R().SetBody(payload).Patch(path))
}

func doDelete(base, path string) ([]byte, error) {
	return checkResponse(newClient(base).R().Delete(path))
}
