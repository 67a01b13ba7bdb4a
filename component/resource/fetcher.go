package resource

import (
	"bytes"
	"crypto/md5"
	"os"
	"path/filepath"
	"sync"
	"time"

	types "github.com/windrose-proxy/windrose/constant/provider"
	"github.com/windrose-proxy/windrose/log"
)

const (
	minInterval = time.Minute * 5
)

var (
	fileMode os.FileMode = 0o666
	dirMode  os.FileMode = 0o755
)

type Parser[V any] func(payload []byte) (V, error)

// Fetcher loads a payload through a vehicle, keeps an on-disk cache when the
// vehicle has a path, and re-pulls on a timer. A failed pull keeps the
// previous payload.
type Fetcher[V any] struct {
	name     string
	vehicle  types.Vehicle
	interval time.Duration
	done     chan struct{}
	parser   Parser[V]
	onUpdate func(V)

	// guards hash and updatedAt, the pull loop and api-triggered updates
	// race on them
	mux       sync.Mutex
	updatedAt time.Time
	hash      [16]byte
}

func (f *Fetcher[V]) Name() string {
	return f.name
}

func (f *Fetcher[V]) Vehicle() types.Vehicle {
	return f.vehicle
}

func (f *Fetcher[V]) VehicleType() types.VehicleType {
	return f.vehicle.Type()
}

func (f *Fetcher[V]) UpdatedAt() time.Time {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.updatedAt
}

func (f *Fetcher[V]) Initial() (V, error) {
	var (
		buf     []byte
		err     error
		isLocal bool
	)

	if stat, fErr := os.Stat(f.vehicle.Path()); fErr == nil {
		// use the cached payload first, the pull loop refreshes it
		buf, err = os.ReadFile(f.vehicle.Path())
		f.setUpdatedAt(stat.ModTime())
		isLocal = true
	} else {
		buf, err = f.vehicle.Read()
		f.setUpdatedAt(time.Now())
	}

	if err != nil {
		return getZero[V](), err
	}

	elm, err := f.parser(buf)
	if err != nil {
		if !isLocal {
			return getZero[V](), err
		}

		log.Warnln("[Provider] parse cached %s error: %s, fallback to remote", f.Name(), err.Error())

		buf, err = f.vehicle.Read()
		if err != nil {
			return getZero[V](), err
		}

		elm, err = f.parser(buf)
		if err != nil {
			return getZero[V](), err
		}

		isLocal = false
	}

	if f.vehicle.Type() != types.File && !isLocal {
		if err := safeWrite(f.vehicle.Path(), buf); err != nil {
			return getZero[V](), err
		}
	}

	f.mux.Lock()
	f.hash = md5.Sum(buf)
	f.mux.Unlock()

	// pull payloads automatically
	if f.interval > 0 {
		go f.pullLoop()
	}

	return elm, nil
}

// Update serializes concurrent pulls, the api and the pull loop may fire at
// the same time.
func (f *Fetcher[V]) Update() (V, bool, error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	buf, err := f.vehicle.Read()
	if err != nil {
		return getZero[V](), false, err
	}

	now := time.Now()
	hash := md5.Sum(buf)
	if bytes.Equal(f.hash[:], hash[:]) {
		f.updatedAt = now
		_ = os.Chtimes(f.vehicle.Path(), now, now)
		return getZero[V](), true, nil
	}

	elm, err := f.parser(buf)
	if err != nil {
		return getZero[V](), false, err
	}

	if f.vehicle.Type() != types.File {
		if err := safeWrite(f.vehicle.Path(), buf); err != nil {
			return getZero[V](), false, err
		}
	}

	f.updatedAt = now
	f.hash = hash

	return elm, false, nil
}

func (f *Fetcher[V]) Close() error {
	if f.interval > 0 {
		f.done <- struct{}{}
	}
	return nil
}

func (f *Fetcher[V]) setUpdatedAt(at time.Time) {
	f.mux.Lock()
	f.updatedAt = at
	f.mux.Unlock()
}

func (f *Fetcher[V]) pullLoop() {
	initialInterval := f.interval - time.Since(f.UpdatedAt())
	if initialInterval < minInterval {
		initialInterval = minInterval
	}

	timer := time.NewTimer(initialInterval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			timer.Reset(f.interval)

			elm, same, err := f.Update()
			if err != nil {
				log.Warnln("[Provider] %s pull error: %s", f.Name(), err.Error())
				continue
			}

			if same {
				log.Debugln("[Provider] %s's payload doesn't change", f.Name())
				continue
			}

			log.Infoln("[Provider] %s's payload update", f.Name())
			if f.onUpdate != nil {
				f.onUpdate(elm)
			}
		case <-f.done:
			return
		}
	}
}

func safeWrite(path string, buf []byte) error {
	if path == "" {
		// http vehicles without a configured cache path skip the disk copy
		return nil
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return err
		}
	}

	return os.WriteFile(path, buf, fileMode)
}

func getZero[V any]() V {
	var result V
	return result
}

func NewFetcher[V any](name string, interval time.Duration, vehicle types.Vehicle, parser Parser[V], onUpdate func(V)) *Fetcher[V] {
	return &Fetcher[V]{
		name:     name,
		interval: interval,
		vehicle:  vehicle,
		parser:   parser,
		done:     make(chan struct{}, 8),
		onUpdate: onUpdate,
	}
}
