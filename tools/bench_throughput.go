package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dnsscience/dnsresolve/internal/wire"
)

var (
	target   = flag.String("target", "127.0.0.1:5354", "DNS server address")
	workers  = flag.Int("workers", 10, "Number of concurrent workers")
	domain   = flag.String("domain", "example.com.", "Domain to query")
	duration = flag.Duration("duration", 10*time.Second, "Test duration")
)

func main() {
	flag.Parse()

	log.Printf("Starting benchmark against %s with %d workers for %v", *target, *workers, *duration)

	var count uint64
	var errors uint64
	start := time.Now()
	done := make(chan struct{})

	qname, err := wire.ParseName(*domain)
	if err != nil {
		log.Fatalf("invalid domain %q: %v", *domain, err)
	}

	// Pre-build the query packet once; every worker reuses the same bytes.
	reqBytes, err := wire.Encode(&wire.Message{
		Header:   wire.Header{ID: 1, RD: true},
		Question: []wire.Question{{Name: qname, Type: wire.TypeA, Class: wire.ClassINET}},
	})
	if err != nil {
		log.Fatalf("encode query: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := net.Dial("udp", *target)
			if err != nil {
				log.Printf("dial error: %v", err)
				return
			}
			defer conn.Close()

			buf := make([]byte, 65535)

			for {
				select {
				case <-done:
					return
				default:
					if _, err := conn.Write(reqBytes); err != nil {
						atomic.AddUint64(&errors, 1)
						continue
					}

					conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
					n, err := conn.Read(buf)
					if err != nil {
						atomic.AddUint64(&errors, 1)
						continue
					}
					if _, err := wire.Decode(buf[:n]); err != nil {
						atomic.AddUint64(&errors, 1)
						continue
					}

					atomic.AddUint64(&count, 1)
				}
			}
		}()
	}

	time.Sleep(*duration)
	close(done)
	wg.Wait()

	totalTime := time.Since(start)
	qps := float64(count) / totalTime.Seconds()

	fmt.Printf("\n--- Results ---\n")
	fmt.Printf("Total Requests: %d\n", count)
	fmt.Printf("Total Errors:   %d\n", errors)
	fmt.Printf("Duration:       %.2fs\n", totalTime.Seconds())
	fmt.Printf("QPS:            %.2f\n", qps)
}
