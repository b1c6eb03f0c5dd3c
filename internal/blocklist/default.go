package blocklist

// DefaultConfigRules is the shipped block.cfg content. These are the
// configuration changes that stay manual no matter what the agent asks for.
const DefaultConfigRules = `# fleetwatch configuration blocklist (block.cfg)
# One pattern per line. Lines containing regex metacharacters match as
# regular expressions anywhere in the candidate; plain lines match as
# literal prefixes. Whitespace runs collapse before literal comparison.

# Root and user authentication changes stay manual.
set system root-authentication
set system login user ([^ ]+) authentication

# Plaintext management protocols.
set system services telnet
set system services ftp

# Broad deletes take out more than an agent can see.
delete security
delete interfaces
delete system login
`

// DefaultCommandRules is the shipped block.cmd content. Commands that take
// a device out of service or destroy state go through change management.
const DefaultCommandRules = `# fleetwatch operational command blocklist (block.cmd)
# One pattern per line. Lines containing regex metacharacters match as
# regular expressions anywhere in the candidate; plain lines match as
# literal prefixes against the raw command.

# Reboots, halts, and wipes.
request system reboot(.*)
request system halt
request system power-off
request system zeroize

# Package operations can strand a remote device.
request system software add
request system software delete
request system software rollback

# Storage cleanup removes evidence needed for postmortems.
request system storage cleanup
clear log
`
