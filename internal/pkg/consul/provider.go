package consul

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/transcriber"
	tapi "github.com/airenas/wardrep/internal/pkg/transcriber/api"
	"github.com/hashicorp/consul/api"
	"go.uber.org/multierr"
)

const (
	transcribeKey = "transcribeURL"
	modelKey      = "model"
	isHTTPSSLKey  = "HTTPSSL"
	priorityKey   = "priority"
)

// ClientOptions are shared by all discovered transcribers
type ClientOptions struct {
	Key     string
	Model   string
	Timeout time.Duration
}

// Provider keeps a list of healthy transcription backends registered in consul
type Provider struct {
	consul  *api.Client
	srvName string
	opts    ClientOptions

	lock  *sync.RWMutex
	trans []*trWrap
}

type trWrap struct {
	real     tapi.Transcriber
	srv      string
	key      string
	priority float64
}

// NewProvider creates consul based transcriber provider
func NewProvider(cfg *api.Config, srvNameInConsul string, opts ClientOptions) (*Provider, error) {
	c, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if srvNameInConsul == "" {
		return nil, fmt.Errorf("no srv name")
	}
	return newProvider(c, srvNameInConsul, opts), nil
}

func newProvider(c *api.Client, srvNameInConsul string, opts ClientOptions) *Provider {
	goapp.Log.Info().Str("service", srvNameInConsul).Msg("cfg: srv name in consul")
	return &Provider{consul: c, srvName: srvNameInConsul, opts: opts, lock: &sync.RWMutex{}, trans: make([]*trWrap, 0)}
}

// Get returns a random transcriber weighted by priority, nil if there are none
func (c *Provider) Get() (tapi.Transcriber, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if len(c.trans) == 0 {
		return nil, nil
	}
	if len(c.trans) == 1 {
		return c.trans[0].real, nil
	}
	i, err := getRandomByPriority(c.trans)
	if err != nil {
		return nil, fmt.Errorf("can't select transcriber: %w", err)
	}
	if i < len(c.trans) {
		return c.trans[i].real, nil
	}
	return nil, nil
}

func getRandomByPriority(trWraps []*trWrap) (int, error) {
	prMax := 0.0
	for _, tr := range trWraps {
		prMax += tr.priority
	}
	if prMax < 0.1 {
		return 0, fmt.Errorf("wrong priority sum found %f", prMax)
	}
	rnd := rand.Float64() * prMax
	prMax = 0.0
	for i, tr := range trWraps {
		prMax += tr.priority
		if prMax > rnd {
			return i, nil
		}
	}
	return len(trWraps), nil
}

// StartRegistryLoop refreshes the list of backends until ctx is done
func (c *Provider) StartRegistryLoop(ctx context.Context, checkInterval time.Duration) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting consul service check every %v", checkInterval)
	res := make(chan struct{}, 2)
	go func() {
		defer close(res)
		c.serviceLoop(ctx, checkInterval)
	}()
	return res, nil
}

func (c *Provider) serviceLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	// run on startup
	if err := c.check(ctx); err != nil {
		goapp.Log.Error().Err(err).Send()
	}
	for {
		select {
		case <-ticker.C:
			if err := c.check(ctx); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		case <-ctx.Done():
			ticker.Stop()
			goapp.Log.Info().Msgf("Stopped consul timer service")
			return
		}
	}
}

func (c *Provider) check(ctx context.Context) error {
	ctxInt, cf := context.WithTimeout(ctx, time.Second*5)
	defer cf()
	srvs, _, err := c.consul.Health().Service(c.srvName, "", true, (&api.QueryOptions{}).WithContext(ctxInt))
	if err != nil {
		return fmt.Errorf("can't invoke consul: %w", err)
	}
	return c.updateSrv(srvs)
}

func (c *Provider) updateSrv(srvs []*api.ServiceEntry) error {
	goapp.Log.Info().Msgf("got %d services from consul", len(srvs))
	c.lock.Lock()
	defer c.lock.Unlock()
	ms := map[string]*api.ServiceEntry{}
	for _, s := range srvs {
		ms[key(s)] = s
	}
	kept := []*trWrap{}
	for _, s := range c.trans {
		if v, ok := ms[s.srv]; ok && s.key == fullKey(v) {
			kept = append(kept, s)
			delete(ms, s.srv)
			continue
		}
		goapp.Log.Warn().Str("service", s.srv).Msgf("dropped transcriber")
	}
	if len(kept) == len(c.trans) && len(ms) == 0 {
		return nil
	}
	c.trans = kept
	var err error
	for v, k := range ms {
		tr, errInt := c.newTranscriber(v, k)
		if errInt != nil {
			err = multierr.Append(err, errInt)
			continue
		}
		c.trans = append(c.trans, tr)
		goapp.Log.Info().Str("service", v).Float64("priority", tr.priority).Msg("added transcriber")
	}
	return err
}

func (c *Provider) newTranscriber(v string, s *api.ServiceEntry) (*trWrap, error) {
	model := c.opts.Model
	if m, ok := s.Service.Meta[modelKey]; ok && m != "" {
		model = m
	}
	tr, err := transcriber.NewClient(getURL(s, transcribeKey), c.opts.Key, model, c.opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("can't init transcriber for %s: %w", v, err)
	}
	priority, err := getPriority(s)
	if err != nil {
		return nil, fmt.Errorf("can't init transcriber for %s: %w", v, err)
	}
	return &trWrap{real: tr, srv: v, key: fullKey(s), priority: priority}, nil
}

func getPriority(s *api.ServiceEntry) (float64, error) {
	v, ok := s.Service.Meta[priorityKey]
	if !ok {
		return 1, nil
	}
	res, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse priority '%s': %w", v, err)
	}
	if res < 0.5 || res > 50 {
		return 0, fmt.Errorf("wrong priority value '%f', not in [0.5, 50]", res)
	}
	return res, nil
}

func getURL(s *api.ServiceEntry, key string) string {
	v, ok := s.Service.Meta[key]
	if !ok {
		return ""
	}
	ssl := ""
	if isSSL, ok := s.Service.Meta[isHTTPSSLKey]; ok {
		if boolValue, err := strconv.ParseBool(isSSL); err == nil && boolValue {
			ssl = "s"
		}
	}
	return fmt.Sprintf("http%s://%s:%d/%s", ssl, s.Service.Address, s.Service.Port, strings.TrimPrefix(v, "/"))
}

func key(s *api.ServiceEntry) string {
	return fmt.Sprintf("%s:%d", s.Service.Address, s.Service.Port)
}

func fullKey(s *api.ServiceEntry) string {
	res := strings.Builder{}
	for _, key := range [...]string{transcribeKey, modelKey, isHTTPSSLKey, priorityKey} {
		v, ok := s.Service.Meta[key]
		if ok {
			res.WriteString(key + ":" + v + ",")
		}
	}
	return res.String()
}
