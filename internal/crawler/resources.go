package crawler

import "time"

// Response shapes for the upstream GraphQL payloads, one per request type.
// Only the fields the processors read are declared.

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type totalCount struct {
	TotalCount int `json:"totalCount"`
}

type namedNode struct {
	Name string `json:"name"`
}

type datedNode struct {
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
}

type commitNode struct {
	CommittedDate time.Time `json:"committedDate"`
	URL           string    `json:"url"`
}

type commitHistory struct {
	Target struct {
		History struct {
			Nodes []commitNode `json:"nodes"`
		} `json:"history"`
	} `json:"target"`
}

type validationResponse struct {
	Data struct {
		Organization *struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"organization"`
	} `json:"data"`
}

type organizationDetailResponse struct {
	Data struct {
		Organization *struct {
			Name            string     `json:"name"`
			Description     string     `json:"description"`
			WebsiteURL      string     `json:"websiteUrl"`
			URL             string     `json:"url"`
			Location        string     `json:"location"`
			MembersWithRole totalCount `json:"membersWithRole"`
			Repositories    totalCount `json:"repositories"`
			Teams           totalCount `json:"teams"`
		} `json:"organization"`
	} `json:"data"`
}

type memberListResponse struct {
	Data struct {
		Organization *struct {
			MembersWithRole struct {
				PageInfo pageInfo `json:"pageInfo"`
				Nodes    []struct {
					ID string `json:"id"`
				} `json:"nodes"`
			} `json:"membersWithRole"`
		} `json:"organization"`
	} `json:"data"`
}

type memberDetailResponse struct {
	Data struct {
		Node *struct {
			Name                      string `json:"name"`
			ID                        string `json:"id"`
			Login                     string `json:"login"`
			URL                       string `json:"url"`
			AvatarURL                 string `json:"avatarUrl"`
			RepositoriesContributedTo struct {
				Nodes []struct {
					ID               string         `json:"id"`
					DefaultBranchRef *commitHistory `json:"defaultBranchRef"`
				} `json:"nodes"`
			} `json:"repositoriesContributedTo"`
			Issues struct {
				Nodes []datedNode `json:"nodes"`
			} `json:"issues"`
			PullRequests struct {
				Nodes []datedNode `json:"nodes"`
			} `json:"pullRequests"`
		} `json:"node"`
	} `json:"data"`
}

type memberPRResponse struct {
	Data struct {
		Organization *struct {
			MembersWithRole struct {
				PageInfo pageInfo `json:"pageInfo"`
				Nodes    []struct {
					ID           string `json:"id"`
					PullRequests struct {
						Nodes []struct {
							UpdatedAt  time.Time `json:"updatedAt"`
							Repository *struct {
								ID     string `json:"id"`
								IsFork bool   `json:"isFork"`
							} `json:"repository"`
						} `json:"nodes"`
					} `json:"pullRequests"`
				} `json:"nodes"`
			} `json:"membersWithRole"`
		} `json:"organization"`
	} `json:"data"`
}

type repositoryNode struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	URL              string         `json:"url"`
	Description      string         `json:"description"`
	ForkCount        int            `json:"forkCount"`
	Stargazers       totalCount     `json:"stargazers"`
	LicenseInfo      *namedNode     `json:"licenseInfo"`
	PrimaryLanguage  *namedNode     `json:"primaryLanguage"`
	DefaultBranchRef *commitHistory `json:"defaultBranchRef"`
	PullRequests     struct {
		Nodes []datedNode `json:"nodes"`
	} `json:"pullRequests"`
	Issues struct {
		Nodes []datedNode `json:"nodes"`
	} `json:"issues"`
}

type repositoryResponse struct {
	Data struct {
		Organization *struct {
			Repositories struct {
				PageInfo pageInfo         `json:"pageInfo"`
				Nodes    []repositoryNode `json:"nodes"`
			} `json:"repositories"`
		} `json:"organization"`
	} `json:"data"`
}

type teamResponse struct {
	Data struct {
		Organization *struct {
			Teams struct {
				PageInfo pageInfo `json:"pageInfo"`
				Nodes    []struct {
					ID          string `json:"id"`
					Name        string `json:"name"`
					Description string `json:"description"`
					AvatarURL   string `json:"avatarUrl"`
					Members     struct {
						Nodes []struct {
							ID string `json:"id"`
						} `json:"nodes"`
					} `json:"members"`
					Repositories struct {
						Nodes []struct {
							ID string `json:"id"`
						} `json:"nodes"`
					} `json:"repositories"`
				} `json:"nodes"`
			} `json:"teams"`
		} `json:"organization"`
	} `json:"data"`
}

type createdReposResponse struct {
	Data struct {
		Organization *struct {
			MembersWithRole struct {
				PageInfo pageInfo `json:"pageInfo"`
				Nodes    []struct {
					ID           string `json:"id"`
					Repositories struct {
						Nodes []repositoryNode `json:"nodes"`
					} `json:"repositories"`
				} `json:"nodes"`
			} `json:"membersWithRole"`
		} `json:"organization"`
	} `json:"data"`
}

type externalRepoResponse struct {
	Data struct {
		Nodes []*repositoryNode `json:"nodes"`
	} `json:"data"`
}
