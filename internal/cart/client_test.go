package cart

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/stock"
	"github.com/recordshop/storefront/pkg/config"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testClient(t *testing.T, rt roundTripFunc) (*Client, *stock.Broadcast) {
	t.Helper()
	apiClient, err := api.NewClient(
		config.APIConfig{BaseURL: "http://api.test"},
		api.TokenFunc(func() string { return "tok" }),
		testLogger(),
		api.WithHTTPClient(&http.Client{Transport: rt}),
	)
	if err != nil {
		t.Fatalf("new api client: %v", err)
	}
	broadcast := stock.NewBroadcast()
	client, err := NewClient(apiClient, broadcast, testLogger())
	if err != nil {
		t.Fatalf("new cart client: %v", err)
	}
	return client, broadcast
}

func TestAddBroadcastsConfirmedStock(t *testing.T) {
	var path string
	var body []byte
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		path = req.URL.Path
		body, _ = io.ReadAll(req.Body)
		return jsonResponse(http.StatusOK, `{"success":true,"updatedStock":2,"cartId":14,"message":"added"}`), nil
	})

	client, broadcast := testClient(t, rt)
	var seen []stock.Update
	unsubscribe := broadcast.Subscribe(func(u stock.Update) { seen = append(seen, u) })
	defer unsubscribe()

	res, err := client.Add(context.Background(), "amy@example.com", 7, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if path != "/cart-details/add/amy@example.com" {
		t.Fatalf("unexpected path %q", path)
	}
	if !strings.Contains(string(body), `"recordId":7`) || !strings.Contains(string(body), `"amount":1`) {
		t.Fatalf("unexpected body %s", body)
	}
	if !res.Success || res.UpdatedStock == nil || *res.UpdatedStock != 2 || res.CartID != 14 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(seen) != 1 || seen[0] != (stock.Update{RecordID: 7, NewStock: 2}) {
		t.Fatalf("unexpected broadcasts %v", seen)
	}
}

func TestAddUnsuccessfulDoesNotBroadcast(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"Success":false,"Message":"not enough stock"}`), nil
	})

	client, broadcast := testClient(t, rt)
	fired := false
	unsubscribe := broadcast.Subscribe(func(stock.Update) { fired = true })
	defer unsubscribe()

	res, err := client.Add(context.Background(), "amy@example.com", 7, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.Success {
		t.Fatalf("expected rejection")
	}
	if res.Message != "not enough stock" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if fired {
		t.Fatalf("rejected mutation must not broadcast")
	}
}

func TestAddBroadcastsStringStock(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":true,"updatedStock":"2"}`), nil
	})

	client, broadcast := testClient(t, rt)
	var seen []stock.Update
	unsubscribe := broadcast.Subscribe(func(u stock.Update) { seen = append(seen, u) })
	defer unsubscribe()

	res, err := client.Add(context.Background(), "amy@example.com", 7, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.UpdatedStock == nil || *res.UpdatedStock != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(seen) != 1 || seen[0] != (stock.Update{RecordID: 7, NewStock: 2}) {
		t.Fatalf("unexpected broadcasts %v", seen)
	}
}

func TestAddGarbageStockDoesNotBroadcast(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":true,"updatedStock":"plenty"}`), nil
	})

	client, broadcast := testClient(t, rt)
	fired := false
	unsubscribe := broadcast.Subscribe(func(stock.Update) { fired = true })
	defer unsubscribe()

	res, err := client.Add(context.Background(), "amy@example.com", 7, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !res.Success || res.UpdatedStock != nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if fired {
		t.Fatalf("unusable stock value must not broadcast")
	}
}

func TestAddValidationErrorPassthrough(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"message":"quantity exceeds stock"}`), nil
	})

	client, _ := testClient(t, rt)
	_, err := client.Add(context.Background(), "amy@example.com", 7, 99)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddRejectsBadArguments(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	client, _ := testClient(t, rt)

	if _, err := client.Add(context.Background(), "", 7, 1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty email, got %v", err)
	}
	if _, err := client.Add(context.Background(), "amy@example.com", 7, 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestRemoveUsesRemovePath(t *testing.T) {
	var path string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		path = req.URL.Path
		return jsonResponse(http.StatusOK, `{"success":true,"updatedStock":4}`), nil
	})

	client, _ := testClient(t, rt)
	if _, err := client.Remove(context.Background(), "amy@example.com", 7, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if path != "/cart-details/remove/amy@example.com" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestGetItemsDecodesMixedCasing(t *testing.T) {
	body := `{"$values":[
		{"IdCartDetail":1,"CartId":14,"RecordId":7,"TitleRecord":"Abbey Road","Amount":2,"Price":"29.99"},
		{"idCartDetail":2,"cartId":14,"recordId":8,"titleRecord":"Harvest","amount":"1","price":19.5}
	]}`
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, body), nil
	})

	client, _ := testClient(t, rt)
	lines, err := client.GetItems(context.Background(), "amy@example.com")
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	first := lines[0]
	if first.ID != 1 || first.CartID != 14 || first.RecordID != 7 || first.Amount != 2 {
		t.Fatalf("unexpected first line %+v", first)
	}
	if first.Total().String() != "59.98" {
		t.Fatalf("unexpected line total %s", first.Total())
	}
	if lines[1].Amount != 1 || lines[1].Price.String() != "19.5" {
		t.Fatalf("unexpected second line %+v", lines[1])
	}
}

func TestCountShapes(t *testing.T) {
	cases := map[string]struct {
		body string
		want int
	}{
		"bare number":    {`3`, 3},
		"numeric string": {`"3"`, 3},
		"count wrapper":  {`{"count":5}`, 5},
		"data wrapper":   {`{"data":5}`, 5},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, tc.body), nil
			})
			client, _ := testClient(t, rt)
			got, err := client.Count(context.Background(), "amy@example.com")
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestCountUnrecognizedShape(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"total":"many"}`), nil
	})
	client, _ := testClient(t, rt)
	if _, err := client.Count(context.Background(), "amy@example.com"); !pkgerrors.IsCode(err, pkgerrors.CodeMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestGetStatusDefaultsToEnabled(t *testing.T) {
	cases := map[string]*http.Response{
		"server error": jsonResponse(http.StatusInternalServerError, `{}`),
		"garbage body": jsonResponse(http.StatusOK, `not json`),
		"empty object": jsonResponse(http.StatusOK, `{}`),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return resp, nil
			})
			client, _ := testClient(t, rt)
			if !client.GetStatus(context.Background(), "amy@example.com") {
				t.Fatalf("status must default to enabled")
			}
		})
	}
}

func TestGetStatusDisabled(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"enabled":false}`), nil
	})
	client, _ := testClient(t, rt)
	if client.GetStatus(context.Background(), "amy@example.com") {
		t.Fatalf("expected disabled cart")
	}
}

func TestEmailEscapedInPaths(t *testing.T) {
	var escaped string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		escaped = req.URL.EscapedPath()
		return jsonResponse(http.StatusOK, `[]`), nil
	})

	client, _ := testClient(t, rt)
	if _, err := client.GetItems(context.Background(), "amy+test@example.com"); err != nil {
		t.Fatalf("get items: %v", err)
	}
	if escaped != "/cart-details/amy%2Btest%40example.com" {
		t.Fatalf("email must be escaped in the path, got %q", escaped)
	}

	rt2 := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		escaped = req.URL.EscapedPath()
		return jsonResponse(http.StatusOK, `{"success":true}`), nil
	})
	client, _ = testClient(t, rt2)
	if _, err := client.Add(context.Background(), "amy+test@example.com", 7, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if escaped != "/cart-details/add/amy%2Btest%40example.com" {
		t.Fatalf("email must be escaped in the mutation path, got %q", escaped)
	}
}

func TestUpdateLine(t *testing.T) {
	var method, path string
	var body []byte
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		method, path = req.Method, req.URL.Path
		body, _ = io.ReadAll(req.Body)
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	client, _ := testClient(t, rt)
	if err := client.UpdateLine(context.Background(), 31, 4); err != nil {
		t.Fatalf("update line: %v", err)
	}
	if method != http.MethodPut || path != "/cart-details/31" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
	if !strings.Contains(string(body), `"amount":4`) {
		t.Fatalf("unexpected body %s", body)
	}

	if err := client.UpdateLine(context.Background(), 31, -1); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
