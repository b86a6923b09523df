package etcd

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeKV is an in-memory clientv3.KV covering Put, Get and Delete. Range reads
// come back newest first, matching the history query's sort options.
type fakeKV struct {
	clientv3.KV

	mu       sync.Mutex
	revision int64
	data     map[string]*mvccpb.KeyValue
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]*mvccpb.KeyValue)}
}

func (f *fakeKV) Put(_ context.Context, key, val string, _ ...clientv3.OpOption) (*clientv3.PutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.revision++
	kv, ok := f.data[key]
	if !ok {
		kv = &mvccpb.KeyValue{Key: []byte(key), CreateRevision: f.revision}
		f.data[key] = kv
	}
	kv.Value = []byte(val)
	kv.ModRevision = f.revision
	return &clientv3.PutResponse{}, nil
}

func (f *fakeKV) Get(_ context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	op := clientv3.OpGet(key, opts...)
	end := op.RangeBytes()
	if len(end) == 0 {
		if kv, ok := f.data[key]; ok {
			return &clientv3.GetResponse{Kvs: []*mvccpb.KeyValue{kv}, Count: 1}, nil
		}
		return &clientv3.GetResponse{}, nil
	}

	var kvs []*mvccpb.KeyValue
	for k, kv := range f.data {
		if k >= key && bytes.Compare([]byte(k), end) < 0 {
			kvs = append(kvs, kv)
		}
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].CreateRevision > kvs[j].CreateRevision })
	return &clientv3.GetResponse{Kvs: kvs, Count: int64(len(kvs))}, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[key]; !ok {
		return &clientv3.DeleteResponse{}, nil
	}
	delete(f.data, key)
	return &clientv3.DeleteResponse{Deleted: 1}, nil
}
