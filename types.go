package main

import (
	"fmt"
	"net/netip"
	"time"
)

type Config struct {
	Name      string          `yaml:"name"`
	Mesh      MeshConfig      `yaml:"mesh"`
	UDP       UDPConfig       `yaml:"udp"`
	TCP       TCPConfig       `yaml:"tcp"`
	DNS       DNSConfig       `yaml:"dns"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

type MeshConfig struct {
	// Addr is this node's own mesh address, used as the source identity
	// on every result.
	Addr *Addr  `yaml:"addr"`
	Port uint16 `yaml:"port"`
}

type UDPConfig struct {
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
	Packets  int      `yaml:"packets"`
}

type TCPConfig struct {
	Interval Duration `yaml:"interval"`
	Timeout  Duration `yaml:"timeout"`
}

type DNSConfig struct {
	Interval  Duration   `yaml:"interval"`
	Timeout   Duration   `yaml:"timeout"`
	Hosts     []string   `yaml:"hosts"`
	Resolvers []AddrPort `yaml:"resolvers"`
}

type DiscoveryConfig struct {
	// Registry is the URL of an HTTP membership registry. When empty the
	// static peer list below is used instead.
	Registry string   `yaml:"registry"`
	Timeout  Duration `yaml:"timeout"`
	Peers    []Peer   `yaml:"peers"`
}

type Peer struct {
	Name string `yaml:"name"`
	Addr Addr   `yaml:"addr"`
}

type Addr struct {
	netip.Addr
}

func (a *Addr) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return fmt.Errorf("Could not parse address: %s", s)
	}
	*a = Addr{addr}
	return nil
}

type AddrPort struct {
	netip.AddrPort
}

func (a *AddrPort) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	addrPort, err := netip.ParseAddrPort(s)
	if err != nil {
		return fmt.Errorf("Could not parse address port: %s", s)
	}
	*a = AddrPort{addrPort}
	return nil
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("Could not parse duration: %s", s)
	}
	*d = Duration{duration}
	return nil
}
