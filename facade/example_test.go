package facade_test

import (
	"fmt"

	"github.com/momentics/hioload-green/facade"
)

func ExampleRuntime() {
	cfg := facade.DefaultConfig()
	cfg.PreemptInterval = 0
	rt, err := facade.New(cfg)
	if err != nil {
		panic(err)
	}
	defer rt.Shutdown()

	done := 0
	for _, name := range []string{"ping", "pong"} {
		rt.Create(func(arg any) {
			for i := 0; i < 2; i++ {
				fmt.Println(arg, i)
				rt.Yield()
			}
			done++
		}, name)
	}
	for done < 2 {
		rt.Yield()
	}
	// Output:
	// ping 0
	// pong 0
	// ping 1
	// pong 1
}

func ExampleRuntime_TLSClone() {
	cfg := facade.DefaultConfig()
	cfg.PreemptInterval = 0
	rt, _ := facade.New(cfg)
	defer rt.Shutdown()

	rt.TLSCreate(16)
	rt.TLSWrite(0, 5, []byte("hello"))
	owner := rt.Self()

	finished := false
	rt.Create(func(any) {
		rt.TLSClone(owner)
		rt.TLSWrite(0, 5, []byte("world"))
		buf := make([]byte, 5)
		rt.TLSRead(0, 5, buf)
		fmt.Println("clone:", string(buf))
		finished = true
	}, nil)
	for !finished {
		rt.Yield()
	}

	buf := make([]byte, 5)
	rt.TLSRead(0, 5, buf)
	fmt.Println("owner:", string(buf))
	// Output:
	// clone: world
	// owner: hello
}
