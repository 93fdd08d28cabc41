package discovery

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/joshuafuller/beacon/querier"

	"github.com/labctl/labctl/internal/ident"
)

// SaveFunc is the hook a discovery worker calls once per resolved peer.
// It must log the discovering device's name and the peer's name but must
// never remove records — only the registry's own replace-on-save
// semantics mutate previously saved entries.
type SaveFunc func(ServiceRecord)

// Continuous resolves every instance of group forever, calling save for
// each one it fully resolves, until ctx is cancelled. It is the discovery
// mode the Controller uses to track Sensors and Actuators.
func Continuous(ctx context.Context, selfName, group string, interval time.Duration, save SaveFunc) {
	browse(ctx, selfName, group, interval, save, false)
}

// Once resolves the first instance of group and calls save exactly once,
// then returns. It is the discovery mode a Sensor uses to locate its
// Environment and Controller, and an Actuator uses to locate its
// Environment.
func Once(ctx context.Context, selfName, group string, interval time.Duration, save SaveFunc) {
	browse(ctx, selfName, group, interval, save, true)
}

// browse implements both Continuous and Once as a polling loop around
// beacon's one-shot querier.Query: beacon exposes no push subscription
// API, so "continuous" and "once" browsing are synthesised by repeating a
// PTR query for the service type on a cadence, then resolving each
// newly-seen instance's SRV and TXT records.
func browse(ctx context.Context, selfName, group string, interval time.Duration, save SaveFunc, once bool) {
	q, err := querier.New()
	if err != nil {
		log.Printf("[%s] discovery: cannot start querier for %s: %v", selfName, group, err)
		return
	}
	defer q.Close()

	serviceType := ServiceType(group)
	seen := map[string]bool{}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		qctx, cancel := context.WithTimeout(ctx, interval)
		resp, err := q.Query(qctx, serviceType, querier.RecordTypePTR)
		cancel()
		if err != nil {
			continue
		}

		for _, rr := range resp.Records {
			instance := rr.AsPTR()
			if instance == "" || seen[instance] {
				continue
			}
			rec, ok := resolve(ctx, q, interval, instance)
			if !ok {
				continue
			}
			seen[instance] = true
			log.Printf("[%s] discovered %s (%s) in %s", selfName, rec.Name, rec.Id, group)
			save(rec)
			if once {
				return
			}
		}
	}
}

// resolve turns a PTR-resolved instance name into a ServiceRecord by
// following up with SRV (host/port) and TXT (id/name/model) queries.
func resolve(ctx context.Context, q *querier.Querier, timeout time.Duration, instance string) (ServiceRecord, bool) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	srvResp, err := q.Query(sctx, instance, querier.RecordTypeSRV)
	cancel()
	if err != nil || len(srvResp.Records) == 0 {
		return ServiceRecord{}, false
	}
	srv := srvResp.Records[0].AsSRV()
	if srv == nil {
		return ServiceRecord{}, false
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	txtResp, err := q.Query(tctx, instance, querier.RecordTypeTXT)
	cancel()
	if err != nil {
		return ServiceRecord{}, false
	}
	txt := parseTXT(txtResp)

	id, ok := txt["id"]
	if !ok {
		return ServiceRecord{}, false
	}

	host := srv.Target
	actx, cancel := context.WithTimeout(ctx, timeout)
	aResp, err := q.Query(actx, srv.Target, querier.RecordTypeA)
	cancel()
	if err == nil && len(aResp.Records) > 0 {
		if ip := aResp.Records[0].AsA(); ip != nil {
			host = ip.String()
		}
	}

	return ServiceRecord{
		Id:    ident.Id(id),
		Name:  ident.Name(txt["name"]),
		Model: ident.ParseModel(txt["model"]),
		Host:  host,
		Port:  int(srv.Port),
	}, true
}

func parseTXT(resp querier.Response) map[string]string {
	out := map[string]string{}
	if len(resp.Records) == 0 {
		return out
	}
	for _, kv := range resp.Records[0].AsTXT() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}
