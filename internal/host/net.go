package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

const defaultHTTPTimeout = 30 * time.Second

type httpSession struct {
	client *http.Client
}

type preparedRequest struct {
	session *httpSession
	method  string
	url     string
	opts    map[string]interface{}
}

type sessionTable struct {
	mu      sync.Mutex
	nextID  int64
	conns   map[int64]*httpSession
	reqsMu  sync.Mutex
	nextReq int64
	reqs    map[int64]*preparedRequest
}

func (t *sessionTable) newSession() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	jar, _ := cookiejar.New(nil)
	id := atomic.AddInt64(&t.nextID, 1)
	if t.conns == nil {
		t.conns = make(map[int64]*httpSession)
	}
	t.conns[id] = &httpSession{client: &http.Client{Jar: jar, Timeout: defaultHTTPTimeout}}
	return id
}

func (t *sessionTable) get(id int64) (*httpSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.conns[id]
	return s, ok
}

func (t *sessionTable) newRequest(req *preparedRequest) int64 {
	t.reqsMu.Lock()
	defer t.reqsMu.Unlock()
	id := atomic.AddInt64(&t.nextReq, 1)
	if t.reqs == nil {
		t.reqs = make(map[int64]*preparedRequest)
	}
	t.reqs[id] = req
	return id
}

func (t *sessionTable) getRequest(id int64) (*preparedRequest, bool) {
	t.reqsMu.Lock()
	defer t.reqsMu.Unlock()
	r, ok := t.reqs[id]
	return r, ok
}

type socketConn struct {
	conn net.Conn
}

type socketTable struct {
	mu     sync.Mutex
	nextID int64
	conns  map[int64]*socketConn
}

func (t *socketTable) add(conn net.Conn) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := atomic.AddInt64(&t.nextID, 1)
	if t.conns == nil {
		t.conns = make(map[int64]*socketConn)
	}
	t.conns[id] = &socketConn{conn: conn}
	return id
}

func (t *socketTable) get(id int64) (*socketConn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	return c, ok
}

// BindNet exposes http_mksession, http_request, http_send, dns, and the raw
// socket functions sock_connect/sock_send/sock_recv.
func BindNet(rt *goja.Runtime, st *State) {
	rt.Set("http_mksession", func() int64 {
		st.ClearError()
		return st.sessions.newSession()
	})

	rt.Set("http_request", func(session int64, method, url string, opts map[string]interface{}) int64 {
		st.ClearError()
		sess, ok := st.sessions.get(session)
		if !ok {
			st.SetError(errNoSuchSession(session))
			return 0
		}
		return st.sessions.newRequest(&preparedRequest{session: sess, method: method, url: url, opts: opts})
	})

	rt.Set("http_send", func(request int64) map[string]interface{} {
		st.ClearError()
		prepared, ok := st.sessions.getRequest(request)
		if !ok {
			st.SetError(errNoSuchRequest(request))
			return nil
		}
		resp, err := sendHTTPRequest(st.Ctx, prepared)
		if err != nil {
			st.SetError(err)
			return nil
		}
		return resp
	})

	rt.Set("dns", func(name, recordType string) []string {
		st.ClearError()
		records, err := resolveDNS(st.Ctx, name, recordType)
		if err != nil {
			st.SetError(err)
			return nil
		}
		return records
	})

	rt.Set("sock_connect", func(network, address string, timeoutMs int64) int64 {
		st.ClearError()
		conn, err := net.DialTimeout(network, address, time.Duration(timeoutMs)*time.Millisecond)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				st.SetError(sferrors.Wrap(sferrors.Timeout, "socket connect timed out", err))
			} else {
				st.SetError(err)
			}
			return 0
		}
		return st.sockets.add(conn)
	})

	rt.Set("sock_send", func(handle int64, data string) int64 {
		st.ClearError()
		sock, ok := st.sockets.get(handle)
		if !ok {
			st.SetError(errNoSuchSocket(handle))
			return 0
		}
		n, err := sock.conn.Write([]byte(data))
		if err != nil {
			st.SetError(err)
			return int64(n)
		}
		return int64(n)
	})

	rt.Set("sock_recv", func(handle int64, maxBytes int64, timeoutMs int64) string {
		st.ClearError()
		sock, ok := st.sockets.get(handle)
		if !ok {
			st.SetError(errNoSuchSocket(handle))
			return ""
		}
		if timeoutMs > 0 {
			sock.conn.SetReadDeadline(time.Now().Add(time.Duration(timeoutMs) * time.Millisecond))
		}
		buf := make([]byte, maxBytes)
		n, err := sock.conn.Read(buf)
		if err != nil && err != io.EOF {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				st.SetError(sferrors.Wrap(sferrors.Timeout, "socket read timed out", err))
			} else {
				st.SetError(err)
			}
			return ""
		}
		return string(buf[:n])
	})
}

func sendHTTPRequest(ctx context.Context, prepared *preparedRequest) (map[string]interface{}, error) {
	timeout := defaultHTTPTimeout
	if ms, ok := prepared.opts["timeout_ms"]; ok {
		if f, ok := toFloat(ms); ok {
			timeout = time.Duration(f) * time.Millisecond
		}
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if b, ok := prepared.opts["body"]; ok {
		if s, ok := b.(string); ok {
			body = strings.NewReader(s)
		}
	}

	req, err := http.NewRequestWithContext(reqCtx, prepared.method, prepared.url, body)
	if err != nil {
		return nil, err
	}
	if headers, ok := prepared.opts["headers"]; ok {
		if m, ok := headers.(map[string]interface{}); ok {
			for k, v := range m {
				if s, ok := v.(string); ok {
					req.Header.Set(k, s)
				}
			}
		}
	}

	resp, err := prepared.session.client.Do(req)
	if err != nil {
		return nil, wrapRequestTimeout(ctx, reqCtx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapRequestTimeout(ctx, reqCtx, err)
	}

	headers := make(map[string]interface{}, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return map[string]interface{}{
		"status":  resp.StatusCode,
		"headers": headers,
		"body":    string(data),
	}, nil
}

// wrapRequestTimeout reclassifies err as Timeout when it was reqCtx's own
// deadline that fired, distinct from the seed's outer ctx being canceled
// (the module runtime's own cancellation, which should surface unchanged).
func wrapRequestTimeout(ctx, reqCtx context.Context, err error) error {
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return sferrors.Wrap(sferrors.Timeout, "http request timed out", err)
	}
	return err
}

func resolveDNS(ctx context.Context, name, recordType string) ([]string, error) {
	resolver := net.DefaultResolver
	switch recordType {
	case "A", "AAAA", "":
		addrs, err := resolver.LookupHost(ctx, name)
		return addrs, err
	case "CNAME":
		cname, err := resolver.LookupCNAME(ctx, name)
		if err != nil {
			return nil, err
		}
		return []string{cname}, nil
	case "TXT":
		return resolver.LookupTXT(ctx, name)
	case "MX":
		records, err := resolver.LookupMX(ctx, name)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(records))
		for i, r := range records {
			out[i] = r.Host
		}
		return out, nil
	case "NS":
		records, err := resolver.LookupNS(ctx, name)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(records))
		for i, r := range records {
			out[i] = r.Host
		}
		return out, nil
	default:
		return nil, errUnknownRecordType(recordType)
	}
}

func errNoSuchSession(id int64) error { return fmt.Errorf("no such http session: %d", id) }
func errNoSuchRequest(id int64) error { return fmt.Errorf("no such http request: %d", id) }
func errNoSuchSocket(id int64) error  { return fmt.Errorf("no such socket: %d", id) }
func errUnknownRecordType(rt string) error { return fmt.Errorf("unknown dns record type: %q", rt) }

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
