package controller

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/labctl/labctl/internal/wire"
	"github.com/labctl/labctl/internal/wiredatum"
)

// Handle dispatches an accepted connection by its request start line.
func (c *Controller) Handle(conn net.Conn) {
	defer conn.Close()

	msg, err := wire.ReadFrom(conn)
	if err != nil {
		c.HandlerFailure(conn, "bad request")
		return
	}

	parts := strings.Fields(msg.StartLine)
	if len(parts) < 2 || parts[0] != "GET" {
		c.HandlerFailure(conn, fmt.Sprintf("unsupported request: %s", msg.StartLine))
		return
	}

	switch parts[1] {
	case "/data":
		c.writeJSON(conn, c.dataResponse())
	case "/datum":
		c.writeJSON(conn, c.datumResponse())
	case "/status":
		c.writeJSON(conn, c.statusResponse())
	case "/ui":
		c.writeUI(conn)
	default:
		c.HandlerFailure(conn, fmt.Sprintf("unsupported request: %s", msg.StartLine))
	}
}

// dataResponse builds the `[{"id":<sid>,"data":[...]},...]` body, in
// sensor-registry iteration order.
func (c *Controller) dataResponse() []sensorData {
	sensors := c.sensors.List()
	out := make([]sensorData, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, sensorData{Id: s.Id, Data: wiredatum.NonNil(c.deque(s.Id).All())})
	}
	return out
}

// datumResponse builds the `[{"id":<sid>,"datum":[...]},...]` body, each
// inner array holding zero or one element.
func (c *Controller) datumResponse() []sensorDatum {
	sensors := c.sensors.List()
	out := make([]sensorDatum, 0, len(sensors))
	for _, s := range sensors {
		var newest []wiredatum.Datum
		if d, ok := c.deque(s.Id).Newest(); ok {
			newest = []wiredatum.Datum{d}
		}
		out = append(out, sensorDatum{Id: s.Id, Datum: wiredatum.NonNil(newest)})
	}
	return out
}

func (c *Controller) statusResponse() statusResponse {
	return statusResponse{
		Sensors:       c.sensors.Len(),
		Actuators:     c.actuators.Len(),
		UptimeSeconds: time.Since(c.startedAt).Seconds(),
	}
}

func (c *Controller) writeJSON(conn net.Conn, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		c.HandlerFailure(conn, "internal encode error")
		return
	}
	wire.NewResponse(200).WithBody(body).WriteTo(conn)
}

// backendURLPlaceholder is the literal token the embedded UI page carries
// in place of the Controller's own address.
const backendURLPlaceholder = "__BACKEND_ADDR__"

// containerModeAddr is substituted in place of the Controller's own
// address when running in container mode (spec §4.7, scenario 5).
const containerModeAddr = "localhost:6565"

func (c *Controller) writeUI(conn net.Conn) {
	addr := c.selfAddr
	if c.containerMode {
		addr = containerModeAddr
	}
	body := strings.ReplaceAll(uiPageTemplate, backendURLPlaceholder, addr)
	resp := wire.NewResponse(200).WithHeaders(map[string]string{
		"Content-Type": "text/html; charset=utf-8",
	}).WithBody([]byte(body))
	resp.WriteTo(conn)
}

// uiPageTemplate is the Controller's embedded dashboard page. Its
// interactivity is not part of the wire contract; only the response shape
// (status code, Content-Type, and the backend-address substitution) is.
const uiPageTemplate = `<!DOCTYPE html>
<html>
<head><title>labctl controller</title></head>
<body>
<h1>labctl</h1>
<p>Backend: <code>` + backendURLPlaceholder + `</code></p>
<script>
const backend = "` + backendURLPlaceholder + `";
async function refresh() {
  const res = await fetch("http://" + backend + "/datum");
  const data = await res.json();
  document.getElementById("readings").textContent = JSON.stringify(data, null, 2);
}
setInterval(refresh, 1000);
</script>
<pre id="readings"></pre>
</body>
</html>
`
