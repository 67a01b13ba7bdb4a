package config

import (
	"fmt"

	"github.com/windrose-proxy/windrose/adapter/outboundgroup"
	"github.com/windrose-proxy/windrose/common/structure"
)

// verifyProxyGroupOrder checks that every group only references groups
// declared before it in the file. Forward references are a configuration
// error, which also rules out reference cycles: a cycle always contains at
// least one forward or self reference.
func verifyProxyGroupOrder(groupsConfig []map[string]any) error {
	decoder := structure.NewDecoder(structure.Option{TagName: "group", WeaklyTypedInput: true})

	groupNames := make(map[string]struct{}, len(groupsConfig))
	options := make([]*outboundgroup.GroupCommonOption, 0, len(groupsConfig))

	for _, mapping := range groupsConfig {
		option := &outboundgroup.GroupCommonOption{}
		if err := decoder.Decode(mapping, option); err != nil {
			return fmt.Errorf("proxy group %s: %s", option.Name, err.Error())
		}

		if _, ok := groupNames[option.Name]; ok {
			return fmt.Errorf("proxy group %s: duplicate group name", option.Name)
		}
		groupNames[option.Name] = struct{}{}
		options = append(options, option)
	}

	declared := make(map[string]struct{}, len(options))
	for _, option := range options {
		for _, proxy := range option.Proxies {
			if proxy == option.Name {
				return fmt.Errorf("proxy group %s: the group refers to itself", option.Name)
			}

			if _, isGroup := groupNames[proxy]; !isGroup {
				continue
			}
			if _, ok := declared[proxy]; !ok {
				return fmt.Errorf("proxy group %s: forward reference to group %s, groups must be declared before use", option.Name, proxy)
			}
		}
		declared[option.Name] = struct{}{}
	}

	return nil
}
