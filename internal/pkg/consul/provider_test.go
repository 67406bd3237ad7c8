package consul

import (
	"fmt"
	"testing"

	"github.com/airenas/wardrep/internal/pkg/test/mocks"
	tapi "github.com/airenas/wardrep/internal/pkg/transcriber/api"
	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider() *Provider {
	return newProvider(nil, "asr", ClientOptions{Model: "whisper-1"})
}

func newEntry(port int, meta map[string]string) *api.ServiceEntry {
	return &api.ServiceEntry{Service: &api.AgentService{Service: "asr", Port: port, Address: "srv", Meta: meta}}
}

func Test_Get_empty(t *testing.T) {
	p := newTestProvider()
	tr, err := p.Get()
	assert.Nil(t, tr)
	assert.Nil(t, err)
}

func Test_Get_single(t *testing.T) {
	p := newTestProvider()
	tr := &mocks.Transcriber{}
	p.trans = append(p.trans, &trWrap{real: tr, srv: "olia", priority: 1})
	rtr, err := p.Get()
	assert.Nil(t, err)
	testAssertEqPtr(t, tr, rtr)
}

func Test_Get_byPriority(t *testing.T) {
	p := newTestProvider()
	tr := &mocks.Transcriber{}
	tr1 := &mocks.Transcriber{}
	p.trans = append(p.trans, &trWrap{real: tr, srv: "olia", priority: 1})
	p.trans = append(p.trans, &trWrap{real: tr1, srv: "olia1", priority: 1})
	got := map[string]bool{}
	for i := 0; i < 200; i++ {
		rtr, err := p.Get()
		require.Nil(t, err)
		got[fmt.Sprintf("%p", rtr)] = true
	}
	assert.Equal(t, 2, len(got))
}

func Test_Get_wrongPriority(t *testing.T) {
	p := newTestProvider()
	p.trans = append(p.trans, &trWrap{real: &mocks.Transcriber{}, srv: "olia"})
	p.trans = append(p.trans, &trWrap{real: &mocks.Transcriber{}, srv: "olia1"})
	rtr, err := p.Get()
	assert.Nil(t, rtr)
	assert.NotNil(t, err)
}

func testAssertEqPtr(t *testing.T, tr, exp tapi.Transcriber) {
	t.Helper()
	assert.Equal(t, fmt.Sprintf("%p", tr), fmt.Sprintf("%p", exp))
}

func TestProvider_updateSrv_no_meta(t *testing.T) {
	p := newTestProvider()
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{})})
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(p.trans))
}

func TestProvider_updateSrv_wrongPriority(t *testing.T) {
	p := newTestProvider()
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{transcribeKey: "tr", priorityKey: "100"})})
	assert.NotNil(t, err)
	assert.Equal(t, 0, len(p.trans))
}

func TestProvider_updateSrv_adds(t *testing.T) {
	p := newTestProvider()
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{transcribeKey: "tr"})})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
	assert.Equal(t, 1.0, p.trans[0].priority)
}

func TestProvider_updateSrv_addsSame(t *testing.T) {
	p := newTestProvider()
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{transcribeKey: "tr"})})
	assert.Nil(t, err)
	cp := p.trans[0]
	err = p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{transcribeKey: "tr"})})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
	assert.Equal(t, cp, p.trans[0])
}

func TestProvider_updateSrv_updates(t *testing.T) {
	p := newTestProvider()
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{transcribeKey: "tr"})})
	assert.Nil(t, err)
	cp := p.trans[0]
	err = p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{transcribeKey: "tr", modelKey: "large"})})
	assert.Nil(t, err)
	assert.Equal(t, 1, len(p.trans))
	assert.NotEqual(t, cp, p.trans[0])
}

func TestProvider_updateSrv_drops(t *testing.T) {
	p := newTestProvider()
	err := p.updateSrv([]*api.ServiceEntry{newEntry(80, map[string]string{transcribeKey: "tr"}),
		newEntry(81, map[string]string{transcribeKey: "tr"}),
		newEntry(82, map[string]string{transcribeKey: "tr"})})
	assert.Nil(t, err)
	assert.Equal(t, 3, len(p.trans))
	err = p.updateSrv([]*api.ServiceEntry{newEntry(82, map[string]string{transcribeKey: "tr"}),
		newEntry(80, map[string]string{transcribeKey: "tr"})})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(p.trans))
}

func Test_getURL(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
		want string
	}{
		{name: "http", meta: map[string]string{transcribeKey: "tr"}, want: "http://srv:80/tr"},
		{name: "https", meta: map[string]string{transcribeKey: "/v1/tr", isHTTPSSLKey: "true"}, want: "https://srv:80/v1/tr"},
		{name: "bad ssl", meta: map[string]string{transcribeKey: "tr", isHTTPSSLKey: "olia"}, want: "http://srv:80/tr"},
		{name: "none", meta: map[string]string{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, getURL(newEntry(80, tt.meta), transcribeKey))
		})
	}
}
