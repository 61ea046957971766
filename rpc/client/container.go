package client

// Container gives access to containers and their listings
type Container struct {
	client *Client
}

// List returns the containers visible to the caller
func (m *Container) List(opts ...RequestOption) (*GetContainersOutput, error) {
	out, _, err := doOutput[*GetContainersOutput](m.client, "", GetContainersInput{}, opts)
	return out, err
}

// Contents lists the objects and directories of a container path
func (m *Container) Contents(container string, input GetContainerContentsInput, opts ...RequestOption) (*GetContainerContentsOutput, error) {
	out, _, err := doOutput[*GetContainerContentsOutput](m.client, container, input, opts)
	return out, err
}
